package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	newsletterhandler "bulletin/internal/newsletter/handler"
	"bulletin/internal/platform/middleware"
	subscriptionhandler "bulletin/internal/subscription/handler"
)

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(logger *slog.Logger, subscriptions *subscriptionhandler.Handler, newsletters *newsletterhandler.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	subscriptions.Register(r)
	newsletters.Register(r)

	return r
}
