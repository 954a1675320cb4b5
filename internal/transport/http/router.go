package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certledger/pkg/platform/httputil"
	"certledger/pkg/platform/middleware/auth"
	"certledger/pkg/platform/middleware/metadata"
	"certledger/pkg/platform/middleware/request"
	"certledger/pkg/platform/middleware/requesttime"
)

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	Logger *slog.Logger
	// Validator checks bearer tokens; nil disables token authentication.
	Validator auth.JWTValidator
	// AllowWalletHeader accepts X-Wallet-Address without a token. Development
	// only.
	AllowWalletHeader bool
	Gatherer          prometheus.Gatherer
	RequestTimeout    time.Duration
}

// NewRouter wires the middleware chain, health and metrics endpoints, and the
// certificate routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = h.logger
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		r.Use(auth.Authenticate(cfg.Validator, cfg.AllowWalletHeader, logger))
		h.Register(r, auth.RequirePrincipal(logger))
	})
	return r
}
