package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/assistant"
	"github.com/spigell/shift-swap/internal/matching"
	"github.com/spigell/shift-swap/internal/shift"
)

// Service is what the handlers need from the matching pipeline.
type Service interface {
	CreatePost(ctx context.Context, in shift.PostInput) (shift.Post, error)
	ListOpenPosts(ctx context.Context) ([]shift.Post, error)
	ListMatches(ctx context.Context) ([]shift.Match, error)
	UpdateStatus(ctx context.Context, id string, status shift.Status) (shift.Post, error)
	Clear(ctx context.Context) error
	ParseChat(ctx context.Context, message string) (assistant.ParseResult, error)
	SuggestSwap(ctx context.Context, requestID string) (matching.SwapSuggestion, error)
	IntelligentMatch(ctx context.Context, req matching.IntelligentRequest) (matching.Outcome, error)
}

// Deps configures the router.
type Deps struct {
	Service Service
	Logger  *zap.Logger
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// NewRouter wires every endpoint behind request ids, panic recovery, access
// logging and CORS.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{service: deps.Service, logger: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/post", h.createPost)
		r.Get("/list", h.listPosts)
		r.Get("/matches", h.listMatches)
		r.Post("/posts/{id}/status", h.updateStatus)
		r.Post("/match", h.suggestSwap)
		r.Post("/parse-chat", h.parseChat)
		r.Post("/intelligent-match", h.intelligentMatch)
		r.Post("/clear", h.clear)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found"})
	})

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
