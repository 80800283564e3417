package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
	user   string
}

func newTestMCP(t *testing.T, handler http.HandlerFunc) (*MCPServer, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		rec.user, _, _ = r.BasicAuth()
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, &rec.body))
		}
		requests = append(requests, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("FAMILYCAL_API_URL", srv.URL+"/")
	t.Setenv("FAMILYCAL_API_USERNAME", "admin")
	t.Setenv("FAMILYCAL_API_PASSWORD", "secret")
	return NewMCPServer(), &requests
}

func callTool(t *testing.T, s *MCPServer, name string, args map[string]interface{}) ToolCallResult {
	t.Helper()
	params, err := json.Marshal(ToolCallParams{Name: name, Arguments: args})
	require.NoError(t, err)

	resp := s.handleRequest(JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(ToolCallResult)
	require.True(t, ok)
	require.Len(t, result.Content, 1)
	return result
}

func okJSON(data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"data":`+data+`}`)
	}
}

func Test_Tools(t *testing.T) {
	names := make([]string, 0)
	for _, tool := range tools() {
		names = append(names, tool.Name)
		for _, req := range tool.InputSchema.Required {
			assert.Contains(t, tool.InputSchema.Properties, req, tool.Name)
		}
	}
	assert.Equal(t, []string{
		"familycal_month",
		"familycal_day_events",
		"familycal_add_event",
		"familycal_update_event",
		"familycal_delete_event",
		"familycal_export_csv",
	}, names)
}

func Test_AddEvent(t *testing.T) {
	s, requests := newTestMCP(t, okJSON(`{"id":"abc","name":"Standup"}`))

	result := callTool(t, s, "familycal_add_event", map[string]interface{}{
		"name": "Standup", "startTime": "09:00", "endTime": "10:00", "category": "work", "date": "2026-10-19",
	})
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, `"id": "abc"`)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/events", req.path)
	assert.Equal(t, "admin", req.user)
	assert.Equal(t, "Standup", req.body["name"])
}

func Test_UpdateEvent_StripsID(t *testing.T) {
	s, requests := newTestMCP(t, okJSON(`{}`))

	callTool(t, s, "familycal_update_event", map[string]interface{}{
		"id": "abc", "name": "Standup", "startTime": "09:00", "endTime": "09:30", "category": "work",
	})

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/api/events/abc", req.path)
	assert.NotContains(t, req.body, "id")
	assert.Equal(t, "09:30", req.body["endTime"])
}

func Test_MonthQuery(t *testing.T) {
	s, requests := newTestMCP(t, okJSON(`{"month":"2026-10"}`))

	callTool(t, s, "familycal_month", map[string]interface{}{"month": "2026-10", "selected": "2026-10-19"})
	callTool(t, s, "familycal_day_events", nil)

	require.Len(t, *requests, 2)
	assert.Equal(t, "/api/month", (*requests)[0].path)
	assert.Equal(t, "month=2026-10&selected=2026-10-19", (*requests)[0].query)
	assert.Equal(t, "/api/events", (*requests)[1].path)
	assert.Empty(t, (*requests)[1].query)
}

func Test_APIErrorIsToolError(t *testing.T) {
	s, _ := newTestMCP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"success":false,"error":"event overlaps with Standup"}`)
	})

	result := callTool(t, s, "familycal_add_event", map[string]interface{}{"name": "Clash"})
	assert.True(t, result.IsError)
	assert.Equal(t, "API Error (409): event overlaps with Standup", result.Content[0].Text)
}

func Test_ExportCSV_Raw(t *testing.T) {
	csv := "Standup,09:00,10:00,N/A,work,October 19, 2026"
	s, requests := newTestMCP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, csv)
	})

	result := callTool(t, s, "familycal_export_csv", map[string]interface{}{"month": "2026-10"})
	assert.False(t, result.IsError)
	assert.Equal(t, csv, result.Content[0].Text)
	assert.Equal(t, "/api/export/csv", (*requests)[0].path)
}

func Test_Run(t *testing.T) {
	s, _ := newTestMCP(t, okJSON(`{}`))

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"bogus"}`,
	}, "\n"))
	var out strings.Builder
	s.Run(in, &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var init struct {
		ID     int `json:"id"`
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &init))
	assert.Equal(t, 1, init.ID)
	assert.Equal(t, "familycal-mcp", init.Result.ServerInfo.Name)

	var bogus JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &bogus))
	require.NotNil(t, bogus.Error)
	assert.Equal(t, -32601, bogus.Error.Code)
}
