package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
	"github.com/Mindburn-Labs/dil/pkg/engine"
	"github.com/Mindburn-Labs/dil/pkg/ledger"
)

// Auditor is the engine surface the HTTP layer needs.
type Auditor interface {
	Process(ctx context.Context, req contracts.AuditRequest) (*engine.Result, error)
	Ledger(ctx context.Context, limit int) engine.LedgerView
	Record(ctx context.Context, requestID string) (contracts.AuditRecord, error)
	Health(ctx context.Context) engine.HealthReport
}

// Options configures the HTTP server.
type Options struct {
	Logger  *slog.Logger
	Limiter Limiter
	Version string
}

// Server exposes the engine over HTTP.
type Server struct {
	auditor Auditor
	schema  *jsonschema.Schema
	logger  *slog.Logger
	limiter Limiter
	version string
}

// NewServer builds a server. A nil Limiter disables rate limiting.
func NewServer(auditor Auditor, opts Options) (*Server, error) {
	schema, err := compileAuditSchema()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		auditor: auditor,
		schema:  schema,
		logger:  logger.With("component", "api"),
		limiter: opts.Limiter,
		version: version,
	}, nil
}

// Routes returns the router with all middleware installed.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))
	if s.limiter != nil {
		r.Use(RateLimit(s.limiter, s.logger))
	}
	r.Use(LimitBody)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "The HTTP method is not supported for this endpoint")
	})

	r.Post("/audit", s.handleAudit)
	r.Get("/ledger", s.handleLedger)
	r.Get("/ledger/{request_id}", s.handleRecord)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/version", s.handleVersion)
	return r
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		WriteBadRequest(w, r, "unable to read request body")
		return
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		WriteBadRequest(w, r, "Validation error: malformed JSON")
		return
	}
	if err := s.schema.Validate(doc); err != nil {
		WriteBadRequest(w, r, "Validation error: "+schemaMessage(err))
		return
	}

	var req contracts.AuditRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteBadRequest(w, r, "Validation error: "+err.Error())
		return
	}

	res, err := s.auditor.Process(r.Context(), req)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, res)
	case errors.Is(err, contracts.ErrValidation):
		WriteBadRequest(w, r, "Validation error: "+err.Error())
	case errors.Is(err, ledger.ErrDuplicateRequestID):
		WriteConflict(w, r, "request_id has already been audited")
	default:
		WriteInternal(w, r, err)
	}
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteBadRequest(w, r, "limit must be an integer")
			return
		}
		limit = n
	}
	WriteJSON(w, http.StatusOK, s.auditor.Ledger(r.Context(), limit))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.auditor.Record(r.Context(), chi.URLParam(r, "request_id"))
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, rec)
	case errors.Is(err, ledger.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "no audit record for this request_id")
	default:
		WriteInternal(w, r, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.auditor.Health(r.Context())
	status := http.StatusOK
	if !report.ChainIntegrity {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, report)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"service": engine.ServiceName,
		"version": s.version,
	})
}
