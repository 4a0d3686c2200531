// Package api exposes the scan lifecycle over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/scan"
)

// SubscriptionLister reads confirmed subscriptions back.
type SubscriptionLister interface {
	ListConfirmed(ctx context.Context) ([]model.Subscription, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// ScanRate and ScanBurst bound how often POST /scan may start a scan.
	ScanRate  float64
	ScanBurst int
}

// Handler serves the scan API.
type Handler struct {
	orch    *scan.Orchestrator
	subs    SubscriptionLister
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewHandler creates a Handler. subs may be nil, in which case
// GET /subscriptions answers 503.
func NewHandler(orch *scan.Orchestrator, subs SubscriptionLister, opts Options) *Handler {
	limit := rate.Limit(opts.ScanRate)
	if opts.ScanRate <= 0 {
		limit = rate.Every(time.Second)
	}
	burst := opts.ScanBurst
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		orch:    orch,
		subs:    subs,
		limiter: rate.NewLimiter(limit, burst),
		log:     zap.L().With(zap.String("component", "api")),
	}
}

// Router builds the chi router with CORS applied.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/scan", func(r chi.Router) {
		r.Get("/", h.GetScan)
		r.With(h.rateLimit).Post("/", h.StartScan)
		r.Post("/manual", h.StartManual)
	})

	r.Route("/candidates", func(r chi.Router) {
		r.Get("/", h.GetCandidates)
		r.Post("/", h.AddCandidate)
		r.Post("/{id}/toggle", h.ToggleCandidate)
	})

	r.Post("/confirm", h.Confirm)
	r.Get("/subscriptions", h.GetSubscriptions)

	return r
}

// NewRouter is shorthand for NewHandler(...).Router(opts.AllowedOrigins).
func NewRouter(orch *scan.Orchestrator, subs SubscriptionLister, opts Options) http.Handler {
	return NewHandler(orch, subs, opts).Router(opts.AllowedOrigins)
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many scan requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
