package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	membership "societyhub/contexts/identity-access/membership-service"
	governanceservice "societyhub/contexts/society-redevelopment/governance-service"
	"societyhub/internal/platform/auth"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "societyhub/internal/platform/httpserver/docs"
)

const moduleName = "internal/platform/httpserver"

// Options carries the cross-cutting settings of the HTTP surface.
type Options struct {
	Authenticator  auth.Authenticator
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are addresses or CIDRs allowed to set X-Forwarded-For.
	// Invalid entries are logged and ignored.
	TrustedProxies []string
	// Registry receives the HTTP and governance collectors. A fresh registry
	// is created when nil.
	Registry *prometheus.Registry
}

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger
	addr       string
	governance governanceservice.Module
	membership membership.Module
	auth       auth.Authenticator
	limiter    *callerLimiter
	proxies    proxyTrust
	metrics    *metrics
}

func New(
	governance governanceservice.Module,
	membershipModule membership.Module,
	opts Options,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
		membership: membershipModule,
		auth:       opts.Authenticator,
		limiter:    newCallerLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		proxies:    newProxyTrust(opts.TrustedProxies, logger),
		metrics:    newMetrics(registry),
	}
	s.registerRoutes(registry)
	s.handler = s.withRequestID(s.withTracing(s.withMetrics(s.mux)))
	return s
}

// Handler exposes the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", moduleName,
		"layer", "platform",
		"addr", s.addr,
	)
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.registerGovernanceRoutes()
	s.registerMembershipRoutes()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate writes 401 and returns false when the caller cannot be
// identified.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, err := s.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return auth.Principal{}, false
	}
	return principal, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}


