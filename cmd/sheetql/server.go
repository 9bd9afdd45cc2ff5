package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sheetql/sheetql"
)

// server holds the HTTP handler dependencies.
type server struct {
	engine *sheetql.Engine
	logger *slog.Logger
}

func newServer(engine *sheetql.Engine, logger *slog.Logger) *server {
	return &server{engine: engine, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type askRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		s.writeError(w, requestID, http.StatusBadRequest, "body must be JSON with a non-empty \"question\"")
		return
	}

	answer, err := s.engine.Ask(r.Context(), req.Question)
	if err != nil {
		logger.Warn("ask failed", "question", req.Question, "err", err)
		s.writeEngineError(w, requestID, err)
		return
	}

	s.writeJSON(w, http.StatusOK, answer)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	catalog, err := s.engine.Refresh(r.Context())
	if err != nil {
		s.logger.Error("refresh failed", "request_id", requestID, "err", err)
		s.writeEngineError(w, requestID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, catalogSummary(catalog))
}

func (s *server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	catalog := s.engine.Catalog()
	if catalog == nil {
		s.writeError(w, uuid.NewString(), http.StatusServiceUnavailable, "catalog not loaded yet")
		return
	}
	s.writeJSON(w, http.StatusOK, catalogSummary(catalog))
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.engine.Catalog() == nil {
		status = "loading"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]string{"status": status})
}

// tableSummary is the catalog shape exposed over HTTP.
type tableSummary struct {
	Name     string            `json:"name"`
	Sheet    string            `json:"sheet"`
	RowCount int               `json:"rowCount"`
	Columns  map[string]string `json:"columns"`
}

type catalogResponse struct {
	BaseTable   string            `json:"baseTable"`
	Tables      []tableSummary    `json:"tables"`
	SheetErrors map[string]string `json:"sheetErrors,omitempty"`
}

func catalogSummary(catalog *sheetql.Catalog) catalogResponse {
	resp := catalogResponse{BaseTable: catalog.BaseTable}
	for _, t := range catalog.Tables {
		cols := make(map[string]string, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = c.Type.String()
		}
		resp.Tables = append(resp.Tables, tableSummary{
			Name:     t.Name,
			Sheet:    t.SheetName,
			RowCount: t.RowCount,
			Columns:  cols,
		})
	}
	if len(catalog.SheetErrors) > 0 {
		resp.SheetErrors = make(map[string]string, len(catalog.SheetErrors))
		for sheet, err := range catalog.SheetErrors {
			resp.SheetErrors[sheet] = err.Error()
		}
	}
	return resp
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses with
// user-readable messages. Raw model SQL is never echoed back.
func (s *server) writeEngineError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, sheetql.ErrRejectedStatement):
		s.writeError(w, requestID, http.StatusBadRequest,
			"the question could not be turned into a safe query; try rephrasing it")
	case errors.Is(err, sheetql.ErrNoBaseTable):
		s.writeError(w, requestID, http.StatusNotFound,
			"no data has been loaded to query")
	case errors.Is(err, sheetql.ErrUpstreamTimeout):
		s.writeError(w, requestID, http.StatusGatewayTimeout,
			"the answer took too long to produce; please retry")
	case errors.Is(err, sheetql.ErrIngestFailure), errors.Is(err, sheetql.ErrEmptyWorkbook):
		s.writeError(w, requestID, http.StatusBadGateway,
			"the workbook could not be loaded")
	default:
		s.writeError(w, requestID, http.StatusInternalServerError,
			"internal error")
	}
}

func (s *server) writeError(w http.ResponseWriter, requestID string, code int, msg string) {
	s.writeJSON(w, code, errorResponse{RequestID: requestID, Error: msg})
}

func (s *server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
