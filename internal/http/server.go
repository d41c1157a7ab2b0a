package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/alerts"
	"ledger/internal/budget"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/session"
)

// Services groups the core operations the server exposes. Incomes is
// optional; its routes are only registered when set.
type Services struct {
	Ledger  *ledger.Service
	Incomes *ledger.Service
	Budget  *budget.Manager
	Alerts  *alerts.Service
}

type Server struct {
	http.Server
	services Services
	trace    *trace.Middleware
	logger   *log.Logger
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, services Services, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		services: services,
		trace:    trace.NewMiddleware(logger),
		logger:   logger.WithComponent(log.ComponentHTTP),
		started:  time.Now(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	expenses := recordHandlers{server: s, ledger: services.Ledger, filename: "ledger"}
	expenses.register(mux, "/api/expenses")
	mux.HandleFunc("GET /api/export", s.withTenant(expenses.export))

	if services.Incomes != nil {
		incomes := recordHandlers{server: s, ledger: services.Incomes, filename: "incomes"}
		incomes.register(mux, "/api/incomes")
		mux.HandleFunc("GET /api/incomes/export", s.withTenant(incomes.export))
	}

	mux.HandleFunc("GET /api/stats", s.withTenant(s.handleStats))
	mux.HandleFunc("GET /api/alerts", s.withTenant(s.handleAlerts))

	mux.HandleFunc("GET /api/budget", s.withTenant(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.withTenant(s.handleSetBudget))
	mux.HandleFunc("GET /api/budget/status", s.withTenant(s.handleBudgetStatus))

	mux.HandleFunc("GET /api/convert", s.handleConvert)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.trace.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withTenant resolves the tenant header into the request context.
func (s *Server) withTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := TenantFromRequest(r)
		if err != nil {
			s.fail(w, r, err, log.OpRead)
			return
		}
		ctx := session.WithTenant(r.Context(), tenant)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldTenant, tenant.String()))
		next(w, r.WithContext(ctx))
	}
}

// fail logs err through the request logger and writes the mapped error
// response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	log.LogError(r.Context(), "Request failed", err, op, log.NewFields().
		WithRequestID(trace.GetRequestID(r.Context())).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
	ErrorFromErr(err).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"metrics": s.trace.GetMetrics(),
	}).Write(w)
}
