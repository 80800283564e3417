package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// JSON-RPC structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPServer exposes the FamilyCal REST API as MCP tools over stdio.
type MCPServer struct {
	apiURL      string
	apiUsername string
	apiPassword string
	client      *http.Client
}

func NewMCPServer() *MCPServer {
	apiURL := os.Getenv("FAMILYCAL_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return &MCPServer{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiUsername: os.Getenv("FAMILYCAL_API_USERNAME"),
		apiPassword: os.Getenv("FAMILYCAL_API_PASSWORD"),
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *MCPServer) Run(in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)

	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			var req JSONRPCRequest
			if jerr := json.Unmarshal([]byte(line), &req); jerr != nil {
				fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", jerr)
			} else if req.ID != nil {
				responseBytes, _ := json.Marshal(s.handleRequest(req))
				fmt.Fprintln(out, string(responseBytes))
			}
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			}
			return
		}
	}
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	case "tools/list":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools()}}
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
	result.ServerInfo.Name = "familycal-mcp"
	result.ServerInfo.Version = "1.0.0"

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

var eventProperties = map[string]Property{
	"name":        {Type: "string", Description: "Название события"},
	"startTime":   {Type: "string", Description: "Начало, HH:MM (24ч)"},
	"endTime":     {Type: "string", Description: "Конец, HH:MM (24ч), позже начала"},
	"category":    {Type: "string", Description: "Категория", Enum: []string{"work", "personal", "others"}},
	"date":        {Type: "string", Description: "Дата в формате YYYY-MM-DD"},
	"description": {Type: "string", Description: "Описание (опционально)"},
}

func tools() []Tool {
	withID := map[string]Property{"id": {Type: "string", Description: "ID события"}}
	for k, v := range eventProperties {
		withID[k] = v
	}

	return []Tool{
		{
			Name:        "familycal_month",
			Description: "Сетка месяца: недели с воскресенья по субботу, отметки сегодня/выбранного дня и число событий в каждом дне.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"month":    {Type: "string", Description: "Месяц YYYY-MM (по умолчанию текущий)"},
					"selected": {Type: "string", Description: "Выбранный день YYYY-MM-DD (опционально)"},
				},
			},
		},
		{
			Name:        "familycal_day_events",
			Description: "События дня по порядку. Без даты возвращает все события.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"date": {Type: "string", Description: "Дата YYYY-MM-DD"}},
			},
		},
		{
			Name:        "familycal_add_event",
			Description: "Добавить событие. События одного дня не могут пересекаться по времени.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: eventProperties,
				Required:   []string{"name", "startTime", "endTime", "category", "date"},
			},
		},
		{
			Name:        "familycal_update_event",
			Description: "Изменить событие по ID. Если дата не указана, событие остаётся в своём дне.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: withID,
				Required:   []string{"id", "name", "startTime", "endTime", "category"},
			},
		},
		{
			Name:        "familycal_delete_event",
			Description: "Удалить событие по ID.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"id": {Type: "string", Description: "ID события"}},
				Required:   []string{"id"},
			},
		},
		{
			Name:        "familycal_export_csv",
			Description: "Выгрузить все события в CSV: name,startTime,endTime,description,category,date.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"month": {Type: "string", Description: "Месяц YYYY-MM для имени файла"}},
			},
		},
	}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	args := params.Arguments
	var result string
	var isError bool

	switch params.Name {
	case "familycal_month":
		result, isError = s.apiGet("/api/month" + query(args, "month", "selected"))
	case "familycal_day_events":
		result, isError = s.apiGet("/api/events" + query(args, "date"))
	case "familycal_add_event":
		result, isError = s.apiRequest(http.MethodPost, "/api/events", args)
	case "familycal_update_event":
		id := stringArg(args, "id")
		body := make(map[string]interface{}, len(args))
		for k, v := range args {
			if k != "id" {
				body[k] = v
			}
		}
		result, isError = s.apiRequest(http.MethodPut, "/api/events/"+url.PathEscape(id), body)
	case "familycal_delete_event":
		result, isError = s.apiRequest(http.MethodDelete, "/api/events/"+url.PathEscape(stringArg(args, "id")), nil)
	case "familycal_export_csv":
		result, isError = s.apiRaw("/api/export/csv" + query(args, "month"))
	default:
		result = "Unknown tool: " + params.Name
		isError = true
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func query(args map[string]interface{}, keys ...string) string {
	q := url.Values{}
	for _, k := range keys {
		if v := stringArg(args, k); v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (s *MCPServer) apiGet(path string) (string, bool) {
	return s.apiRequest(http.MethodGet, path, nil)
}

func (s *MCPServer) do(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.apiURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.apiUsername != "" {
		req.SetBasicAuth(s.apiUsername, s.apiPassword)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.client.Do(req)
}

// apiRaw returns the body unchanged (exports are not JSON).
func (s *MCPServer) apiRaw(path string) (string, bool) {
	resp, err := s.do(http.MethodGet, path, nil)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("API Error: %s", strings.TrimSpace(string(respBody))), true
	}
	if len(respBody) == 0 {
		return "(нет событий)", false
	}
	return string(respBody), false
}

func (s *MCPServer) apiRequest(method, path string, body interface{}) (string, bool) {
	resp, err := s.do(method, path, body)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}

	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return string(respBody), resp.StatusCode >= 400
	}

	if !apiResp.Success {
		return fmt.Sprintf("API Error (%d): %s", resp.StatusCode, apiResp.Error), true
	}

	var prettyData bytes.Buffer
	if err := json.Indent(&prettyData, apiResp.Data, "", "  "); err != nil {
		return string(apiResp.Data), false
	}

	return prettyData.String(), false
}

func main() {
	NewMCPServer().Run(os.Stdin, os.Stdout)
}
