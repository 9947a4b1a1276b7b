// Package http exposes the pipelines and the read side over JSON.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig listens on :8080 with 30s read/write timeouts
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "0.0.0.0:8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// routes lists every endpoint below /api
func routes(h *Handlers) []route {
	return []route{
		{http.MethodPost, "/pipelines/sales", h.RunSalesToReceipt},
		{http.MethodPost, "/pipelines/procure", h.RunProcureToPay},
		{http.MethodPost, "/pipelines/expense", h.RunExpenseReimbursement},

		{http.MethodGet, "/opportunities", h.ListOpportunities},
		{http.MethodGet, "/contracts", h.ListContracts},
		{http.MethodGet, "/contracts/:id", h.GetContract},
		{http.MethodPost, "/contracts/:id/decision", h.DecideContract},
		{http.MethodPost, "/contracts/:id/resubmit", h.ResubmitContract},
		{http.MethodGet, "/projects", h.ListProjects},
		{http.MethodGet, "/invoices", h.ListInvoices},
		{http.MethodGet, "/invoices/:id", h.GetInvoice},
		{http.MethodPost, "/invoices/:id/payments", h.RecordPayment},
		{http.MethodPost, "/invoices/:id/payment-approval", h.ApprovePayment},
		{http.MethodGet, "/purchase-requests", h.ListPurchaseRequests},
		{http.MethodGet, "/expense-requests", h.ListExpenseRequests},
		{http.MethodGet, "/approvals", h.ListApprovals},
		{http.MethodGet, "/statistics", h.GetStatistics},

		{http.MethodPost, "/maintenance/overdue-sweep", h.SweepOverdue},
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     Logger
}

// NewServer wires handlers into a gin engine. Nothing listens until Start.
func NewServer(config ServerConfig, handlers *Handlers, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	s := &Server{config: config, router: router, logger: logger}

	router.Use(requestID(), gin.Recovery(), s.accessLog())
	router.GET("/health", handlers.HealthCheck)
	api := router.Group("/api")
	for _, r := range routes(handlers) {
		api.Handle(r.method, r.path, r.handler)
	}

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// requestID echoes the caller's X-Request-ID or assigns a fresh one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// accessLog logs every request; server errors go to the error level
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"request_id", c.GetString(RequestIDHeader),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("HTTP request failed", fields...)
			return
		}
		s.logger.Info("HTTP request", fields...)
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop drains in-flight requests for at most ShutdownTimeout
func (s *Server) Stop() error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the gin engine (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
