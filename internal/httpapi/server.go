package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"localassist/internal/orchestrator"
	"localassist/internal/resource"
	"localassist/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() []types.Model
	Status() types.Status
	Subscribe() (<-chan types.Status, func())
	SendMessage(ctx context.Context, history []types.PromptTurn, opts orchestrator.SendOptions) (orchestrator.Reply, error)
	StopGeneration()
	SwitchModel(ctx context.Context, name string) error
	DownloadModel(ctx context.Context, name string) error
	CancelLoad() bool
	SetGuardrail(level string, customPercent int) (resource.Policy, error)
	Ready() bool
}

var _ Service = (*orchestrator.Orchestrator)(nil)

// NewMux builds the HTTP router over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}

	// Compression only for plain JSON; streaming routes flush per line.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/models", h.models)
		r.Get("/status", h.status)
	})
	r.Get("/events", h.events)
	r.Post("/chat", h.chat)
	r.Post("/stop", h.stop)
	r.Post("/switch", h.switchModel)
	r.Post("/download", h.download)
	r.Post("/cancel", h.cancel)
	r.Put("/settings/guardrail", h.guardrail)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}
