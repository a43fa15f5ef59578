package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/auth"
	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
	domusage "github.com/kailas-cloud/resumatch/internal/domain/usage"
	"github.com/kailas-cloud/resumatch/internal/extract"
	"github.com/kailas-cloud/resumatch/internal/logger"
	assistuc "github.com/kailas-cloud/resumatch/internal/usecase/assist"
	healthuc "github.com/kailas-cloud/resumatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/resumatch/internal/usecase/match"
)

// Error codes carried in ErrorResponse.Error.
const (
	codeBadRequest        = "bad_request"
	codeInvalidFilter     = "invalid_filter"
	codeEmptyText         = "empty_text"
	codeUnsupportedType   = "unsupported_type"
	codeExtractionFailed  = "extraction_failed"
	codePayloadTooLarge   = "payload_too_large"
	codeRateLimited       = "rate_limited"
	codeQuotaExceeded     = "embedding_quota_exceeded"
	codeProviderError     = "embedding_provider_error"
	codeSearchUnavailable = "search_unavailable"
	codeDimensionMismatch = "dimension_mismatch"
	codeMissingField      = "missing_field"
	codeUnauthorized      = "unauthorized"
	codeGenThrottled      = "generation_rate_limited"
	codeGenUnavailable    = "generation_error"
	codeInternal          = "internal_error"
)

const (
	multipartResumeField  = "resume"
	multipartFileField    = "file"
	multipartFiltersField = "filters"

	defaultMaxUploadBytes = 10 << 20
	// textBodyOverhead allows for JSON framing around the text itself.
	textBodyOverhead = 64 << 10
)

// Matcher runs a match request.
type Matcher interface {
	Match(ctx context.Context, req matchuc.Request) (matchuc.Outcome, error)
}

// UsageReporter reports embedding budget state.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Assistant runs the text generation tasks.
type Assistant interface {
	RewriteResume(ctx context.Context, rawText, style string) (assistuc.Rewrite, error)
	CoverLetter(ctx context.Context, resumeText, jobDescription string) (string, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the resumatch HTTP API.
type Server struct {
	match          Matcher
	usage          UsageReporter
	health         HealthChecker
	assist         Assistant
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. maxUploadBytes <= 0 selects 10 MiB.
func NewServer(
	match Matcher, usage UsageReporter, health HealthChecker,
	maxUploadBytes int64, log *zap.Logger,
) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{
		match:          match,
		usage:          usage,
		health:         health,
		logger:         log,
		maxUploadBytes: maxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		filterValidationHandler,
		missingFieldHandler,
		sentinelHandler(domain.ErrEmptyText, http.StatusBadRequest, codeEmptyText),
		sentinelHandler(domain.ErrUnsupportedType, http.StatusUnsupportedMediaType, codeUnsupportedType),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusUnprocessableEntity, codeExtractionFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, codeDimensionMismatch),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, codeSearchUnavailable),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrInvalidResponse, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrGenerationThrottled, http.StatusTooManyRequests, codeGenThrottled),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, codeGenUnavailable),
	}
	return s
}

// WithAssistant enables the résumé rewrite and cover letter routes.
func (s *Server) WithAssistant(a Assistant) *Server {
	s.assist = a
	return s
}

// Routes mounts the API on a chi router, both at the root and under /api.
// Middlewares are applied by the caller.
func (s *Server) Routes(r chi.Router) {
	s.apiRoutes(r)
	r.Route("/api", s.apiRoutes)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Post("/match", s.MatchFile)
	r.Post("/match/text", s.MatchText)
	r.Post("/upload", s.Upload)
	r.Get("/usage", s.GetUsage)
	if s.assist != nil {
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/rewrite-resume", s.RewriteResume)
			r.Post("/cover-letter", s.CoverLetter)
		})
	}
}

// upload is a résumé file read from a multipart request.
type upload struct {
	data        []byte
	filename    string
	contentType string
}

// readUpload parses the multipart body and reads the résumé part, taken
// from the "resume" field or else the "file" field. It writes the error
// response itself and reports false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return upload{}, false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "expected multipart/form-data")
		return upload{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(multipartResumeField)
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = r.FormFile(multipartFileField)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing resume file field")
		return upload{}, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read upload")
		return upload{}, false
	}
	return upload{data: data, filename: header.Filename, contentType: header.Header.Get("Content-Type")}, true
}

// MatchFile handles POST /match (multipart: resume or file, optional filters).
func (s *Server) MatchFile(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	// Reject a malformed filter before spending time on extraction.
	rawFilters := []byte(r.FormValue(multipartFiltersField))
	if _, err := filter.Parse(rawFilters); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	text, err := extract.Extract(up.data, up.contentType)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.runMatch(w, r, text, rawFilters)
}

// Upload handles POST /upload: text extraction only, no embedding.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	text, err := extract.Extract(up.data, up.contentType)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:    true,
		Filename:   up.filename,
		Text:       text,
		TextLength: utf8.RuneCountInString(text),
	})
}

// RewriteResume handles POST /rewrite-resume. Requires an authenticated caller.
func (s *Server) RewriteResume(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	out, err := s.assist.RewriteResume(r.Context(), req.RawText, req.Style)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RewriteResponse{
		Success:   true,
		Rewritten: out.Text,
		Bullets:   out.Bullets,
		Style:     string(out.Style),
	})
}

// CoverLetter handles POST /cover-letter. Requires an authenticated caller.
func (s *Server) CoverLetter(w http.ResponseWriter, r *http.Request) {
	var req CoverLetterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	letter, err := s.assist.CoverLetter(r.Context(), req.ResumeText, req.JobDescription)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CoverLetterResponse{Success: true, CoverLetter: letter})
}

// decodeJSON reads a size-capped JSON body into v. It writes the error
// response itself and reports false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+textBodyOverhead)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return false
	}
	return true
}

// MatchText handles POST /match/text.
func (s *Server) MatchText(w http.ResponseWriter, r *http.Request) {
	var req TextMatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	s.runMatch(w, r, req.Text, req.Filters)
}

func (s *Server) runMatch(w http.ResponseWriter, r *http.Request, text string, rawFilters []byte) {
	id := auth.FromContext(r.Context())

	out, err := s.match.Match(r.Context(), matchuc.Request{
		Text:          text,
		RawFilters:    rawFilters,
		Authenticated: id.Authenticated,
		Subject:       id.Subject,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NewMatchResponse(out))
}

// GetUsage handles GET /usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "period must be day or month")
		return
	}
	writeJSON(w, http.StatusOK, usageFromDomain(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidFilterSpec,
		domain.ErrEmptyText,
		domain.ErrUnsupportedType,
		domain.ErrExtractionFailed,
		domain.ErrRateLimited,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrDimensionMismatch,
		domain.ErrSearchUnavailable,
		domain.ErrProviderUnavailable,
		domain.ErrInvalidResponse,
		domain.ErrMissingField,
		domain.ErrGenerationThrottled,
		domain.ErrGenerationUnavailable,
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

// filterValidationHandler reports the offending filter field. The detail is
// produced by the filter parser and never carries upstream text.
func filterValidationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidFilterSpec) {
		return false
	}
	var ve *filter.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Error()
	}
	writeError(w, http.StatusBadRequest, codeInvalidFilter, msg)
	return true
}

// missingFieldHandler names the absent request field.
func missingFieldHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrMissingField) {
		return false
	}
	var mf *domain.MissingFieldError
	if errors.As(err, &mf) {
		msg = mf.Error()
	}
	writeError(w, http.StatusBadRequest, codeMissingField, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
