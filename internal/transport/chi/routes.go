package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable code of an ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeSessionNotFound        ErrorCode = "session_not_found"
	ErrorCodeRetrievalUnavailable   ErrorCode = "retrieval_unavailable"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeGenerationFailed       ErrorCode = "generation_failed"
	ErrorCodeReviewsUnavailable     ErrorCode = "reviews_unavailable"
	ErrorCodeSummaryUnavailable     ErrorCode = "summary_unavailable"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ServerInterface lists the API operations.
type ServerInterface interface {
	// (POST /ask)
	Ask(w http.ResponseWriter, r *http.Request)
	// (POST /session/new)
	NewSession(w http.ResponseWriter, r *http.Request)
	// (GET /session/{session_id}/history)
	GetSessionHistory(w http.ResponseWriter, r *http.Request, sessionID string)
	// (POST /session/{session_id}/clear)
	ClearSession(w http.ResponseWriter, r *http.Request, sessionID string)
	// (GET /sessions)
	ListSessions(w http.ResponseWriter, r *http.Request)
	// (POST /search)
	SearchCatalog(w http.ResponseWriter, r *http.Request)
	// (GET /stats)
	GetStats(w http.ResponseWriter, r *http.Request)
	// (POST /SumaryReview)
	SummarizeReviews(w http.ResponseWriter, r *http.Request)
	// (GET /CacheStats)
	GetCacheStats(w http.ResponseWriter, r *http.Request)
	// (GET /CacheConfig)
	GetCacheConfig(w http.ResponseWriter, r *http.Request)
	// (POST /ClearCache)
	ClearCache(w http.ResponseWriter, r *http.Request)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single operation handler.
type MiddlewareFunc func(http.Handler) http.Handler

// InvalidParamFormatError reports a path parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter chi.Router
	// AdminMiddlewares guard the cache management mutations.
	AdminMiddlewares []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// serverInterfaceWrapper binds path parameters before calling the handler.
type serverInterfaceWrapper struct {
	handler          ServerInterface
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var sessionID string
	err := runtime.BindStyledParameterWithOptions("simple", "session_id", chi.URLParam(r, "session_id"),
		&sessionID, runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "session_id", Err: err})
		return "", false
	}
	return sessionID, true
}

func (siw *serverInterfaceWrapper) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.handler.GetSessionHistory(w, r, id)
	}
}

func (siw *serverInterfaceWrapper) ClearSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.handler.ClearSession(w, r, id)
	}
}

// HandlerWithOptions mounts every operation of si on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := &serverInterfaceWrapper{handler: si, errorHandlerFunc: options.ErrorHandlerFunc}

	admin := make([]func(http.Handler) http.Handler, len(options.AdminMiddlewares))
	for i, m := range options.AdminMiddlewares {
		admin[i] = m
	}

	r.Group(func(r chi.Router) {
		r.Post("/ask", si.Ask)
		r.Post("/session/new", si.NewSession)
		r.Get("/session/{session_id}/history", wrapper.GetSessionHistory)
		r.Post("/session/{session_id}/clear", wrapper.ClearSession)
		r.Get("/sessions", si.ListSessions)
		r.Post("/search", si.SearchCatalog)
		r.Get("/stats", si.GetStats)
		r.Post("/SumaryReview", si.SummarizeReviews)
		r.Get("/CacheStats", si.GetCacheStats)
		r.Get("/CacheConfig", si.GetCacheConfig)
		r.With(admin...).Post("/ClearCache", si.ClearCache)
		r.Get("/health", si.HealthCheck)
		r.Get("/metrics", si.Metrics)
	})
	return r
}
