package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/db"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// TaskService is the task lifecycle the API exposes
type TaskService interface {
	ListTasks(ctx context.Context, status string) ([]tasks.Record, error)
	SetStatus(ctx context.Context, ref string, status tasks.Status) (tasks.Record, error)
}

// ReportRunner triggers a scheduled report out of band
type ReportRunner interface {
	RunNow(ctx context.Context, job string) error
}

// UsageSource reports external API usage
type UsageSource interface {
	UsageStats(since time.Time) ([]db.UsageStat, error)
}

// Options configures the server. Zero-valued dependencies disable their routes.
type Options struct {
	AuthKey     string
	Tasks       TaskService
	Reports     ReportRunner
	Usage       UsageSource
	WebhookPath string
	Webhook     http.Handler
}

type Server struct {
	opts   Options
	server *http.Server
}

func NewServer(opts Options) *Server {
	return &Server{opts: opts}
}

// Handler returns the full route tree
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.opts.Webhook != nil && s.opts.WebhookPath != "" {
		// Without a leading slash ServeMux would read the path as a host
		mux.Handle("POST /"+strings.TrimLeft(s.opts.WebhookPath, "/"), s.opts.Webhook)
	}
	if s.opts.Tasks != nil {
		mux.HandleFunc("GET /api/tasks", s.authMiddleware(s.handleTasks))
		mux.HandleFunc("POST /api/tasks/{ref}/status", s.authMiddleware(s.handleTaskStatus))
	}
	if s.opts.Reports != nil {
		mux.HandleFunc("POST /api/reports/{job}", s.authMiddleware(s.handleReport))
	}
	if s.opts.Usage != nil {
		mux.HandleFunc("GET /api/stats", s.authMiddleware(s.handleStats))
	}

	return s.corsMiddleware(mux)
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Auth middleware checks for Bearer token
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		if s.opts.AuthKey == "" || parts[1] != s.opts.AuthKey {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next(w, r)
	}
}

// CORS middleware for development
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "AI CEO Assistant running...")
}

// Health check endpoint (no auth required)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Helper to write JSON responses
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper to write error responses
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
