// Package chi binds the recommendation services to an HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hiringlab/assessrec/internal/domain"
	composeuc "github.com/hiringlab/assessrec/internal/usecase/compose"
	healthuc "github.com/hiringlab/assessrec/internal/usecase/health"
	ingestuc "github.com/hiringlab/assessrec/internal/usecase/ingest"
)

// retryAttempts bounds how often a retry-eligible operation runs in one request.
const retryAttempts = 2

// defaultContextK is the candidate count for context and search requests that
// omit k. The recommendation endpoint uses the configured default instead.
const defaultContextK = 5

// Ingestor indexes pushed catalog records.
type Ingestor interface {
	Ingest(ctx context.Context, assessments []domain.Assessment) (ingestuc.Report, error)
}

// Retriever returns ranked candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.Candidate, error)
}

// Composer turns candidates into a recommendation set.
type Composer interface {
	Compose(ctx context.Context, query string, candidates []domain.Candidate) (composeuc.Result, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the recommendation API over HTTP.
type Server struct {
	ingest        Ingestor
	retrieve      Retriever
	compose       Composer
	health        HealthChecker
	responseK     int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. responseK is the candidate count used
// by the recommendation endpoint when the request omits k.
func NewServer(
	ingest Ingestor,
	retrieve Retriever,
	compose Composer,
	health HealthChecker,
	responseK int,
	logger *zap.Logger,
) *Server {
	if responseK <= 0 {
		responseK = domain.MaxRecommendations
	}
	s := &Server{
		ingest:    ingest,
		retrieve:  retrieve,
		compose:   compose,
		health:    health,
		responseK: responseK,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMalformedCatalog, http.StatusBadRequest, codeMalformedCatalog),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/push_docs", s.PushDocs)
		r.Post("/context", s.Context)
		r.Get("/search", s.Search)
		r.Post("/response", s.Response)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// PushDocs handles POST /api/v1/push_docs.
func (s *Server) PushDocs(w http.ResponseWriter, r *http.Request) {
	var req pushDocsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "records must not be empty")
		return
	}

	assessments := make([]domain.Assessment, len(req.Records))
	for i, rec := range req.Records {
		assessments[i] = recordToDomain(rec)
	}

	report, err := s.ingest.Ingest(r.Context(), assessments)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pushDocsResponse{
		UpsertedCount: report.Upserted,
		FailedIDs:     report.FailedIDs,
	})
}

// Context handles POST /api/v1/context.
func (s *Server) Context(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.respondCandidates(w, r, req.Query, resolveK(req.K, defaultContextK))
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	k := defaultContextK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "k must be an integer")
			return
		}
		k = n
	}

	s.respondCandidates(w, r, query, k)
}

func (s *Server) respondCandidates(w http.ResponseWriter, r *http.Request, query string, k int) {
	candidates, err := s.retrieveWithRetry(r.Context(), query, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	dtos := make([]candidateDTO, len(candidates))
	for i, c := range candidates {
		dtos[i] = candidateToDTO(c)
	}
	writeJSON(w, http.StatusOK, contextResponse{Candidates: dtos})
}

// Response handles POST /api/v1/response.
func (s *Server) Response(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	candidates, err := s.retrieveWithRetry(r.Context(), req.Query, resolveK(req.K, s.responseK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// The composer degrades to a fallback on upstream failure, so its result
	// is final: no retry past this point.
	result, err := s.compose.Compose(r.Context(), req.Query, candidates)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if result.Fallback {
		s.logger.Warn("Served fallback recommendations", zap.String("query", req.Query))
	}

	dtos := make([]recommendationDTO, len(result.Recommendations))
	for i, rec := range result.Recommendations {
		dtos[i] = recommendationToDTO(rec)
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: dtos})
}

// retrieveWithRetry retries the retrieval once when the embedding provider is
// unavailable. Any other failure surfaces immediately.
func (s *Server) retrieveWithRetry(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		candidates, err = s.retrieve.Retrieve(ctx, query, k)
		if err == nil || !errors.Is(err, domain.ErrUpstreamUnavailable) {
			return candidates, err
		}
		if attempt < retryAttempts {
			s.logger.Warn("Retrying retrieval after upstream failure",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}
	return nil, err
}

// resolveK substitutes the default when the request omitted k. An explicit
// value passes through untouched; the retrieval layer owns range clamping.
func resolveK(k *int, def int) int {
	if k == nil {
		return def
	}
	return *k
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:             string(report.Status),
		Checks:             checks,
		IndexedAssessments: report.IndexedAssessments,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrMalformedCatalog,
		domain.ErrUpstreamUnavailable,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
