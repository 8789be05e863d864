// Package http serves the JSON API over both ledgers.
package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/ledger"
	applog "pocketbook/internal/log"
	"pocketbook/internal/middleware/ratelimit"
	"pocketbook/internal/middleware/security"
	"pocketbook/internal/middleware/trace"
	"pocketbook/internal/persist"
)

const (
	maxBodyBytes     = 64 << 10
	defaultHeartbeat = 25 * time.Second
)

// Options configures NewServer.
type Options struct {
	Addr               string
	Expenses           *ledger.Ledger
	Transactions       *ledger.Ledger
	Taxonomy           persist.TaxonomyReader
	Logger             *applog.Logger
	RateLimitPerMinute int
	// Ready is consulted by /readyz when set.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	expenses     *ledger.Ledger
	transactions *ledger.Ledger
	taxonomy     persist.TaxonomyReader
	logger       *applog.Logger
	structured   *applog.StructuredLogger
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	ready        func(ctx context.Context) error

	today        func() core.Date

	// heartbeat is the idle interval between SSE keep-alive comments.
	heartbeat time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	detector := security.NewDetector()
	s := &Server{
		expenses:     opts.Expenses,
		transactions: opts.Transactions,
		taxonomy:     opts.Taxonomy,
		logger:       logger,
		structured:   applog.NewStructuredLogger(logger),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, logger),
		ready:        opts.Ready,
		today:        core.Today,
		heartbeat:    defaultHeartbeat,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PATCH /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/expenses/summary", s.handleExpenseSummary)
	mux.HandleFunc("GET /api/expenses/total", s.handleExpenseTotal)
	mux.HandleFunc("GET /api/expenses/events", s.handleExpenseEvents)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handleClearTransactions)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions/summary", s.handleTransactionSummary)
	mux.HandleFunc("GET /api/transactions/monthly", s.handleTransactionMonthly)
	mux.HandleFunc("GET /api/transactions/events", s.handleTransactionEvents)

	limited := s.limitMutating(detector.ExtractClientIP)(mux)
	withRequestID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	var handler http.Handler = applog.Middleware(logger)(withRequestID(limited))
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	// Request contexts end on Shutdown so event streams let go.
	base, cancel := context.WithCancel(context.Background())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	s.Server.RegisterOnShutdown(cancel)
	return s
}

// Limiter returns the rate limiter so its client table can be swept.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// limitMutating rate limits every request that is not a read.
func (s *Server) limitMutating(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	limit := s.limiter.Middleware(extractIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, extractIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	expense, transaction, err := s.taxonomy.List(r.Context())
	if err != nil {
		s.structured.LogError(r.Context(), "Taxonomy list error", err, applog.ComponentHTTP, applog.OpList, nil)
		InternalServerError("failed to load categories").Write(w)
		return
	}
	NewJSONResponse().JSON(categoriesResponse{
		Expense:     expense,
		Transaction: transaction,
		All:         allCategories,
	}).Write(w)
}
