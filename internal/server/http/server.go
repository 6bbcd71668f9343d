// Package httpserver exposes the typing-trainer JSON API over chi.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/and161185/sakhatype/internal/repository"
	"github.com/and161185/sakhatype/internal/service"
)

// Limits are the default page sizes used when a request omits ?limit=.
type Limits struct {
	Leaderboard int
	History     int
	Words       int
}

// Options carries router settings. TimeModes bounds time_mode in result bodies.
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	Limits         Limits
	TimeModes      []int
}

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	results service.ResultService
	board   service.LeaderboardService
	profile service.ProfileService
	words   service.WordService
	ready   repository.Pinger
	log     *zap.Logger
	opts    Options
	schemas *schemas
	router  chi.Router
}

// New constructs the router with injected services.
func New(
	auth service.AuthService,
	results service.ResultService,
	board service.LeaderboardService,
	profile service.ProfileService,
	words service.WordService,
	ready repository.Pinger,
	log *zap.Logger,
	opts Options,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Limits.Leaderboard <= 0 {
		opts.Limits.Leaderboard = 100
	}
	if opts.Limits.History <= 0 {
		opts.Limits.History = 50
	}
	if opts.Limits.Words <= 0 {
		opts.Limits.Words = 100
	}
	if len(opts.TimeModes) == 0 {
		opts.TimeModes = service.DefaultTimeModes
	}
	s := &Server{
		auth:    auth,
		results: results,
		board:   board,
		profile: profile,
		words:   words,
		ready:   ready,
		log:     log,
		opts:    opts,
		schemas: mustCompileSchemas(opts.TimeModes),
	}
	s.setupRouter()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logging)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.With(s.requireAuth).Get("/users/me", s.handleMe)
		r.Get("/profile/{username}", s.handleProfile)

		r.With(s.requireAuth).Post("/results", s.handleRecordResult)
		r.Get("/results/user/{username}", s.handleHistory)

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/wpm", s.handleGlobal("wpm"))
			r.Get("/accuracy", s.handleGlobal("accuracy"))
			r.Get("/time-mode/{mode}", s.handleTimeMode)
			r.Get("/daily/time-mode/{mode}", s.handleDailyTimeMode)
			r.Get("/weekly-xp", s.handleWeeklyXP)
		})

		r.Get("/words", s.handleWords)
	})

	s.router = r
}
