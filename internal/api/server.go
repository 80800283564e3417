package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/export"
	"github.com/tazhate/familycal/internal/service"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

// Server is the JSON surface over the event store and the month grid.
type Server struct {
	cfg      *config.Config
	store    *service.EventStore
	exporter export.Exporter
	log      zerolog.Logger
	now      func() time.Time

	router *mux.Router
	server *http.Server
}

// New builds the router. exporter may be nil, in which case exports are not archived.
func New(cfg *config.Config, store *service.EventStore, exporter export.Exporter, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		exporter: exporter,
		log:      log,
		now:      time.Now,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if s.cfg.APIAuthEnabled() {
		api.Use(s.basicAuth)
	}

	// Month grid
	api.HandleFunc("/month", s.getMonth).Methods(http.MethodGet)

	// Events by id
	api.HandleFunc("/events", s.listEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.createEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", s.getEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", s.updateEvent).Methods(http.MethodPut)
	api.HandleFunc("/events/{id}", s.deleteEvent).Methods(http.MethodDelete)

	// Events by position within a day
	api.HandleFunc("/days/{date}/events/{index:[0-9]+}", s.updateDayEvent).Methods(http.MethodPut)
	api.HandleFunc("/days/{date}/events/{index:[0-9]+}", s.deleteDayEvent).Methods(http.MethodDelete)

	// Export
	api.HandleFunc("/export/csv", s.exportCSV).Methods(http.MethodGet)
	api.HandleFunc("/export/ics", s.exportICS).Methods(http.MethodGet)
}

// Handle mounts h on the root router outside Basic Auth (the bot webhook).
func (s *Server) Handle(path string, h http.Handler) {
	s.router.Handle(path, h)
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: s.cfg.APIAuthEnabled(),
	}).Handler(s.router)
}

// Start serves until Stop is called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         ":" + s.cfg.ServerPort,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.APIUsername)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.APIPassword)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="FamilyCal API"`)
			s.jsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})
}

// responseWriter captures the status code for logging
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
