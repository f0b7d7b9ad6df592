// Package api exposes the learning service as an HTTP JSON API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/catalog"
	"github.com/p-n-ai/pathshala/internal/certificate"
	"github.com/p-n-ai/pathshala/internal/events"
	"github.com/p-n-ai/pathshala/internal/learning"
)

const (
	defaultLoginRate  = 1.0
	defaultLoginBurst = 5
	maxBodyBytes      = 64 * 1024
	readyTimeout      = 2 * time.Second
)

// Catalog is the read side of the course catalog.
type Catalog interface {
	Course(id string) (catalog.Course, bool)
	CourseBySlug(slug string) (catalog.Course, bool)
	Courses() []catalog.Course
	Search(query string) []catalog.Course
	Reload() error
}

// EventHistory returns a learner's recent activity.
type EventHistory interface {
	Recent(ctx context.Context, userID string, limit int) ([]events.Event, error)
}

// Check is a named readiness probe.
type Check func(ctx context.Context) error

// Config holds dependencies for the API server.
type Config struct {
	Accounts     *account.Service
	Sessions     account.SessionStore
	Learning     *learning.Service
	Catalog      Catalog
	Certificates *certificate.Issuer
	Hub          *events.Hub  // optional: enables /v1/ws
	History      EventHistory // optional: enables /v1/me/activity
	Checks       map[string]Check
	Version      string
	LoginRate    float64 // auth requests per second per client IP (default 1)
	LoginBurst   int     // default 5
	// OriginPatterns are extra hosts allowed to open the websocket cross-origin.
	OriginPatterns []string
}

// Server serves the HTTP API.
type Server struct {
	accounts *account.Service
	sessions account.SessionStore
	learning *learning.Service
	catalog  Catalog
	certs    *certificate.Issuer
	hub      *events.Hub
	history  EventHistory
	checks   map[string]Check
	version  string
	limiter  *limiter.Limiter
	origins  []string
}

// NewServer creates an API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Accounts == nil || cfg.Sessions == nil || cfg.Learning == nil || cfg.Catalog == nil || cfg.Certificates == nil {
		return nil, fmt.Errorf("accounts, sessions, learning, catalog and certificates are required")
	}
	rate := cfg.LoginRate
	if rate == 0 {
		rate = defaultLoginRate
	}
	burst := cfg.LoginBurst
	if burst == 0 {
		burst = defaultLoginBurst
	}

	lmt := tollbooth.NewLimiter(rate, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetBurst(burst)
	lmt.SetMessageContentType("application/json; charset=utf-8")
	lmt.SetMessage(`{"error":"too_many_requests","message":"অনেক বেশি অনুরোধ। কিছুক্ষণ পর চেষ্টা করুন।"}`)

	return &Server{
		accounts: cfg.Accounts,
		sessions: cfg.Sessions,
		learning: cfg.Learning,
		catalog:  cfg.Catalog,
		certs:    cfg.Certificates,
		hub:      cfg.Hub,
		history:  cfg.History,
		checks:   cfg.Checks,
		version:  cfg.Version,
		limiter:  lmt,
		origins:  cfg.OriginPatterns,
	}, nil
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	router := routegroup.New(http.NewServeMux())
	router.Use(
		rest.RealIP,
		rest.Recoverer(slogBackend{level: slog.LevelError}),
		rest.AppInfo("pathshala", "p-n-ai", s.version),
		rest.Trace,
		rest.SizeLimit(maxBodyBytes),
	)

	router.HandleFunc("GET /healthz", s.handleHealthz)
	router.HandleFunc("GET /readyz", s.handleReadyz)

	// The websocket stays outside the request logger, which wraps the ResponseWriter.
	if s.hub != nil {
		router.With(s.requireUser).HandleFunc("GET /v1/ws", s.handleWebsocket)
	}

	router.Mount("/v1").Route(func(v1 *routegroup.Bundle) {
		v1.Use(rest.NoCache, logger.New(logger.Log(slogBackend{level: slog.LevelDebug})).Handler)

		v1.With(tollbooth.HTTPMiddleware(s.limiter)).Route(func(auth *routegroup.Bundle) {
			auth.HandleFunc("POST /auth/register", s.handleRegister)
			auth.HandleFunc("POST /auth/login", s.handleLogin)
		})

		v1.HandleFunc("GET /courses", s.handleListCourses)
		v1.HandleFunc("GET /courses/{id}", s.handleGetCourse)
		v1.HandleFunc("GET /certificates/verify/{code}", s.handleVerifyCertificate)

		v1.Group().Route(func(user *routegroup.Bundle) {
			user.Use(s.requireUser)

			user.HandleFunc("POST /auth/logout", s.handleLogout)
			user.HandleFunc("GET /me", s.handleGetMe)
			user.HandleFunc("PATCH /me", s.handleUpdateMe)
			user.HandleFunc("POST /me/password", s.handleChangePassword)
			user.HandleFunc("GET /me/activity", s.handleActivity)

			user.HandleFunc("GET /enrollments", s.handleEnrollments)
			user.HandleFunc("POST /courses/{id}/enroll", s.handleEnroll)
			user.HandleFunc("GET /courses/{id}/progress", s.handleProgress)
			user.HandleFunc("POST /courses/{id}/points/{point}/complete", s.handleCompletePoint)
			user.HandleFunc("POST /courses/{id}/chapters/{chapter}/complete", s.handleCompleteChapter)
			user.HandleFunc("POST /courses/{id}/modules/{module}/practice", s.handleSubmitPractice)
			user.HandleFunc("POST /courses/{id}/modules/{module}/quiz", s.handleSubmitQuiz)
			user.HandleFunc("POST /courses/{id}/certificate", s.handleClaimCertificate)

			user.HandleFunc("GET /certificates", s.handleListCertificates)
			user.HandleFunc("GET /certificates/{id}", s.handleGetCertificate)
		})

		v1.Mount("/admin").Route(func(admin *routegroup.Bundle) {
			admin.Use(s.requireUser, s.requireAdmin)

			admin.HandleFunc("GET /users", s.handleListUsers)
			admin.HandleFunc("POST /users/{id}/premium", s.handleSetPremium)
			admin.HandleFunc("POST /courses/{id}/users/{user}/modules/{module}/quiz/reset", s.handleResetQuiz)
			admin.HandleFunc("GET /courses/{id}/gradebook.xlsx", s.handleGradebook)
			admin.HandleFunc("POST /catalog/reload", s.handleReloadCatalog)
		})
	})

	return router
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// slogBackend adapts slog to the printf-style logger the rest middlewares expect.
type slogBackend struct {
	level slog.Level
}

func (b slogBackend) Logf(format string, args ...any) {
	slog.Log(context.Background(), b.level, fmt.Sprintf(format, args...))
}
