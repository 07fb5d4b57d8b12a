package receipt

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Server handles HTTP requests for splitting sessions
type Server struct {
	service   *Service
	basicAuth BasicAuth
	metrics   *Metrics
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth, metrics *Metrics) *Server {
	return NewServerWithMux(service, basicAuth, metrics, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, metrics *Metrics, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		metrics:   metrics,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Splitter"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs and measures every request on a route
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		elapsed := time.Since(start)
		s.metrics.observeRequest(route, rec.status, elapsed.Seconds())

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		}
		switch {
		case rec.status >= 500:
			slog.Error("HTTP request", attrs...)
		case rec.status >= 400:
			slog.Warn("HTTP request", attrs...)
		default:
			slog.Info("HTTP request", attrs...)
		}
	}
}

// handle registers an authenticated, instrumented route
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.instrument(pattern, s.requireAuth(h)))
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.handle("GET /api/sessions", s.handleListSessions)
	s.handle("POST /api/sessions", s.handleCreateSession)
	s.handle("GET /api/sessions/{id}", s.handleGetSession)
	s.handle("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.handle("POST /api/sessions/{id}/reset", s.handleResetSession)
	s.handle("PUT /api/sessions/{id}/step", s.handleSetStep)

	// Step 1: receipt
	s.handle("POST /api/sessions/{id}/scan", s.handleScanReceipt)
	s.handle("POST /api/sessions/{id}/sample", s.handleLoadSample)
	s.handle("GET /api/sessions/{id}/image", s.handleGetImage)
	s.handle("PUT /api/sessions/{id}/receipt", s.handleUpdateDetails)
	s.handle("POST /api/sessions/{id}/items", s.handleAddItem)

	// Step 2: people
	s.handle("POST /api/sessions/{id}/people", s.handleAddPeople)
	s.handle("DELETE /api/sessions/{id}/people/{person}", s.handleRemovePerson)

	// Step 3: assignments and tip
	s.handle("PUT /api/sessions/{id}/items/{index}/assignees/{person}", s.handleAssign)
	s.handle("DELETE /api/sessions/{id}/items/{index}/assignees/{person}", s.handleUnassign)
	s.handle("POST /api/sessions/{id}/assign-unassigned", s.handleAssignUnassigned)
	s.handle("POST /api/sessions/{id}/split-evenly", s.handleSplitEvenly)
	s.handle("PUT /api/sessions/{id}/tip", s.handleSetTip)

	// Step 4: summary
	s.handle("GET /api/sessions/{id}/split", s.handleSplit)
	s.handle("GET /api/sessions/{id}/summary.txt", s.handleSummary)
	s.handle("GET /api/sessions/{id}/split.csv", s.handleCSV)
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

// Start serves HTTP on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
