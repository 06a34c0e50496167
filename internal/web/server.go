package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/nojellyleg/gallery/internal/service"
)

// maxRequestBytes caps an admin request body. Content items arrive
// base64-encoded, so a body may carry several 10 MiB payloads inflated by
// 4/3 plus JSON framing.
const maxRequestBytes = 64 << 20

type Server struct {
	service       *service.SessionService
	router        chi.Router
	adminUsername string
	adminPassword string
	adminToken    string
	logger        *slog.Logger
}

func NewServer(svc *service.SessionService, adminUsername, adminPassword, allowedOrigin string, logger *slog.Logger) *Server {
	s := &Server{
		service:       svc,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		adminToken:    deriveToken(adminUsername, adminPassword),
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Auth"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/api/login", s.handleLogin)
	r.Get("/api/sessions", s.handleListSessions)
	r.Get("/api/sessions/{id}", s.handleGetSession)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/api/sessions", s.handleCreateSession)
		r.Put("/api/sessions/{id}", s.handleUpdateSession)
		r.Delete("/api/sessions/{id}", s.handleDeleteSession)
		r.Post("/api/sessions/{id}/media", s.handleAppendMedia)
		r.Put("/api/sessions/{id}/media", s.handleReplaceMedia)
		r.Delete("/api/sessions/{id}/media/{mediaID}", s.handleDeleteMedia)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	s.router.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

// requireAdmin gates mutating routes behind the fixed admin credentials. The
// token is a digest of the credential pair, handed out by /api/login and
// checked in constant time.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deriveToken(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
