package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"roora/internal/auth"
	"roora/internal/log"
	"roora/internal/metrics"
	"roora/internal/middleware/ratelimit"
	"roora/internal/middleware/security"
	"roora/internal/middleware/trace"
	"roora/internal/services"
	"roora/internal/telemetry"
	appweb "roora/web"
)

// Options wires the server's collaborators. Planner, Auth, Sessions and
// Templates are required.
type Options struct {
	Addr      string
	Planner   *services.Planner
	Auth      *auth.PasswordAuthenticator
	Sessions  *auth.SessionManager
	Cookies   auth.Cookies
	Metrics   *metrics.Metrics
	Templates *Templates
	// Ready reports whether backing stores are reachable, for /readyz.
	Ready     func(ctx context.Context) error
	RateLimit int
	BaseURL   string
	Logger    *log.Logger
	Now       func() time.Time
}

type Server struct {
	http.Server
	planner   *services.Planner
	auth      *auth.PasswordAuthenticator
	sessions  *auth.SessionManager
	cookies   auth.Cookies
	metrics   *metrics.Metrics
	templates *Templates
	ready     func(ctx context.Context) error
	baseURL   string
	logger    *log.Logger
	now       func() time.Time

	mux          *http.ServeMux
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig().RequestsPerMinute
	}

	s := &Server{
		planner:   opts.Planner,
		auth:      opts.Auth,
		sessions:  opts.Sessions,
		cookies:   opts.Cookies,
		metrics:   opts.Metrics,
		templates: opts.Templates,
		ready:     opts.Ready,
		baseURL:   opts.BaseURL,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		now:       opts.Now,
		mux:       http.NewServeMux(),
		detector:  security.NewDetector(opts.Metrics),
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimit,
		CleanupInterval:   5 * time.Minute,
	})

	s.routes()

	tracer := trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP, opts.Metrics)
	onLimit := func(r *http.Request) {
		s.metrics.RateLimited()
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	}

	var handler http.Handler = s.mux
	handler = s.sessions.WithUser(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = tracer.Middleware(handler)
	handler = telemetry.Handler(handler, "roora")

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// handle registers h and records the matched pattern for request metrics.
func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, trace.Route(h))
}

func (s *Server) handleFunc(pattern string, h http.HandlerFunc) {
	s.handle(pattern, h)
}

func (s *Server) routes() {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		s.handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.handleFunc("GET /healthz", handleHealth)
	s.handleFunc("GET /readyz", s.handleReady)
	s.handle("GET /metrics", s.metrics.Handler())

	s.handleFunc("GET /{$}", s.handleLanding)

	s.handleFunc("GET /auth/login", s.handleLoginPage)
	s.handleFunc("POST /auth/login", s.handleLogin)
	s.handleFunc("GET /auth/signup", s.handleSignupPage)
	s.handleFunc("POST /auth/signup", s.handleSignup)
	s.handleFunc("POST /auth/logout", s.handleLogout)
	s.handleFunc("POST /auth/magic", s.handleMagicLink)
	s.handleFunc("GET /auth/callback", s.handleCallback)

	s.handle("POST /dashboard/wedding", s.member(s.handleCreateWedding))
	s.handle("POST /dashboard/wedding/join", s.member(s.handleJoinWedding))

	s.handle("GET /dashboard", s.tenant(s.handleDashboard))

	s.handle("GET /dashboard/events", s.tenant(s.handleEvents))
	s.handle("GET /dashboard/events/new", s.tenant(s.handleNewEvent))
	s.handle("POST /dashboard/events", s.tenant(s.handleCreateEvent))
	s.handle("GET /dashboard/events/{id}", s.tenant(s.handleEvent))
	s.handle("GET /dashboard/events/{id}/edit", s.tenant(s.handleEditEvent))
	s.handle("POST /dashboard/events/{id}", s.tenant(s.handleUpdateEvent))
	s.handle("POST /dashboard/events/{id}/delete", s.tenant(s.handleDeleteEvent))

	s.handle("GET /dashboard/suppliers", s.tenant(s.handleSuppliers))
	s.handle("GET /dashboard/suppliers/new", s.tenant(s.handleNewSupplier))
	s.handle("POST /dashboard/suppliers", s.tenant(s.handleCreateSupplier))
	s.handle("GET /dashboard/suppliers/{id}", s.tenant(s.handleSupplier))
	s.handle("GET /dashboard/suppliers/{id}/edit", s.tenant(s.handleEditSupplier))
	s.handle("POST /dashboard/suppliers/{id}", s.tenant(s.handleUpdateSupplier))
	s.handle("POST /dashboard/suppliers/{id}/delete", s.tenant(s.handleDeleteSupplier))
	s.handle("POST /dashboard/suppliers/{id}/quotes", s.tenant(s.handleCreateQuote))
	s.handle("POST /dashboard/suppliers/{id}/documents", s.tenant(s.handleUploadQuoteFile))

	s.handle("POST /dashboard/quotes/{id}", s.tenant(s.handleUpdateQuote))
	s.handle("POST /dashboard/quotes/{id}/delete", s.tenant(s.handleDeleteQuote))
	s.handle("POST /dashboard/quotes/{id}/payments", s.tenant(s.handleCreatePayment))
	s.handle("POST /dashboard/payments/{id}/delete", s.tenant(s.handleDeletePayment))

	s.handle("GET /dashboard/budget", s.tenant(s.handleBudget))
	s.handle("POST /dashboard/budget", s.tenant(s.handleUpdateBudget))

	s.handle("GET /dashboard/tasks", s.tenant(s.handleTasks))
	s.handle("POST /dashboard/tasks", s.tenant(s.handleCreateTask))
	s.handle("POST /dashboard/tasks/{id}", s.tenant(s.handleUpdateTask))
	s.handle("POST /dashboard/tasks/{id}/status", s.tenant(s.handleTaskStatus))
	s.handle("POST /dashboard/tasks/{id}/delete", s.tenant(s.handleDeleteTask))

	s.handle("GET /dashboard/inspiration", s.tenant(s.handleInspiration))
	s.handle("POST /dashboard/inspiration", s.tenant(s.handleUploadPhoto))
	s.handle("POST /dashboard/inspiration/{id}/delete", s.tenant(s.handleDeletePhoto))

	s.handle("GET /dashboard/settings", s.tenant(s.handleSettings))
	s.handle("POST /dashboard/settings/profile", s.member(s.handleUpdateProfile))

	s.handle("GET /files/{bucket}/{path...}", s.tenant(s.handleFile))
}

// Shutdown stops the rate limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var err error
	if s.templates == nil || !s.templates.Has("dashboard") {
		err = errors.New("templates not loaded")
	} else if s.ready != nil {
		err = s.ready(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
