package routes

import (
	"net/http"

	"github.com/aromaiq/recommender-backend/internal/api/handlers"
	"github.com/aromaiq/recommender-backend/internal/api/middleware"
	"github.com/aromaiq/recommender-backend/internal/domain/providers"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	selectionHandler   *handlers.SelectionHandler
	feedbackHandler    *handlers.FeedbackHandler
	performanceHandler *handlers.PerformanceHandler

	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewRouter creates a new router. The cache provider backs response caching
// on the analytics routes and may be nil.
func NewRouter(
	selectionHandler *handlers.SelectionHandler,
	feedbackHandler *handlers.FeedbackHandler,
	performanceHandler *handlers.PerformanceHandler,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		selectionHandler:   selectionHandler,
		feedbackHandler:    feedbackHandler,
		performanceHandler: performanceHandler,
		cache:              cache,
		metrics:            metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Selection endpoints
	r.mux.HandleFunc("POST /api/v1/selections", r.selectionHandler.SelectAlgorithm)

	// Feedback endpoints
	r.mux.HandleFunc("POST /api/v1/feedback", r.feedbackHandler.SubmitFeedback)
	r.mux.HandleFunc("POST /api/v1/feedback/batch", r.feedbackHandler.SubmitBatchFeedback)

	// Analytics endpoints
	r.mux.HandleFunc("GET /api/v1/performance/trend", r.performanceHandler.GetPerformanceTrend)
	r.mux.HandleFunc("GET /api/v1/users/{id}/analysis", r.performanceHandler.GetAlgorithmAnalysis)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	if r.cache != nil {
		handler = middleware.NewCacheMiddleware(r.cache).Middleware(handler)
	}
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
