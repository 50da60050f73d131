package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"novoape/internal/identity"
	"novoape/internal/log"
	"novoape/internal/metrics"
	"novoape/internal/middleware/ratelimit"
	"novoape/internal/middleware/security"
	"novoape/internal/middleware/trace"
	"novoape/internal/session"
)

// Config holds the listener settings.
type Config struct {
	Addr string
	// RateLimitPerMinute caps project writes per user.
	RateLimitPerMinute int
	// AuthRateLimitPerMinute caps sign-up and sign-in per client address.
	// Zero uses RateLimitPerMinute.
	AuthRateLimitPerMinute int
}

// Deps are the collaborators every handler relies on.
type Deps struct {
	Sessions *session.Manager
	Identity identity.Provider
	Tokens   *identity.TokenManager
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	// Ready reports whether the document store answers. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	sessions *session.Manager
	identity identity.Provider
	tokens   *identity.TokenManager
	metrics  *metrics.Metrics
	logger   *log.Logger
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		sessions: deps.Sessions,
		identity: deps.Identity,
		tokens:   deps.Tokens,
		metrics:  deps.Metrics,
		logger:   logger.WithComponent(log.ComponentHTTP),
		ready:    deps.Ready,
		detector: security.NewDetector(logger),
	}
	authLimit := cfg.AuthRateLimitPerMinute
	if authLimit <= 0 {
		authLimit = cfg.RateLimitPerMinute
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		Limits: map[ratelimit.Scope]int{
			ratelimit.ScopeAuth:  authLimit,
			ratelimit.ScopeWrite: cfg.RateLimitPerMinute,
		},
		OnReject: func(scope ratelimit.Scope) { deps.Metrics.IncRateLimited(string(scope)) },
	})
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.observer()).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	authLimit := s.limiter.Middleware(ratelimit.ScopeAuth, s.detector.ExtractClientIP, rejectRateLimited)
	writeLimit := s.limiter.Middleware(ratelimit.ScopeWrite, sessionUserID, rejectRateLimited)

	r.Route("/api", func(r chi.Router) {
		r.With(authLimit).Post("/auth/signup", s.signUp)
		r.With(authLimit).Post("/auth/signin", s.signIn)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/auth/signout", s.signOut)

			r.Get("/project", s.getSnapshot)
			r.Get("/summary", s.getSummary)
			r.Get("/bills", s.listBills)
			r.Get("/rooms", s.listRooms)
			r.Get("/rooms/{id}", s.getRoom)
			r.Get("/initial-costs", s.listInitialCosts)
			r.Get("/recurring-costs", s.listRecurringCosts)
			r.Get("/purchases", s.listPurchases)
			r.Get("/purchases/groups", s.purchaseGroups)
			r.Get("/payment-methods", s.listPaymentMethods)
			r.Get("/checklist", s.getChecklist)

			r.Group(func(r chi.Router) {
				r.Use(writeLimit)

				r.Put("/project/name", s.setProjectName)

				r.Post("/initial-costs", s.addInitialCost)
				r.Patch("/initial-costs/{id}", s.patchInitialCost)
				r.Delete("/initial-costs/{id}", s.removeInitialCost)

				r.Post("/recurring-costs", s.addRecurringCost)
				r.Patch("/recurring-costs/{id}", s.patchRecurringCost)
				r.Delete("/recurring-costs/{id}", s.removeRecurringCost)

				r.Post("/rooms", s.addRoom)
				r.Patch("/rooms/{id}", s.patchRoom)
				r.Delete("/rooms/{id}", s.removeRoom)
				r.Post("/rooms/{id}/repairs", s.addRepair)
				r.Post("/rooms/{id}/repairs/{itemID}/toggle", s.toggleRepair)
				r.Delete("/rooms/{id}/repairs/{itemID}", s.removeRepair)
				r.Post("/rooms/{id}/materials", s.addMaterial)
				r.Delete("/rooms/{id}/materials/{itemID}", s.removeMaterial)
				r.Post("/rooms/{id}/labor", s.addLabor)
				r.Delete("/rooms/{id}/labor/{itemID}", s.removeLabor)

				r.Post("/purchases", s.addPurchase)
				r.Put("/purchases/{id}", s.updatePurchase)
				r.Delete("/purchases/{id}", s.removePurchase)
				r.Post("/payment-methods", s.addPaymentMethod)

				r.Post("/checklist/items/{id}/toggle", s.toggleChecklistItem)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// observer avoids handing trace a typed nil.
func (s *Server) observer() trace.Observer {
	if s.metrics == nil {
		return nil
	}
	return s.metrics
}

// sessionUserID keys write limits by the signed-in user.
func sessionUserID(r *http.Request) string {
	if sess := sessionFrom(r); sess != nil {
		if u, ok := sess.User(); ok {
			return u.ID
		}
	}
	return ""
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded, try again later")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, "document store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the limiter cleanup and then the listener. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
