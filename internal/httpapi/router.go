// Package httpapi exposes the quest board as a JSON API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"questboard/internal/auth"
	"questboard/internal/service"
	"questboard/internal/session"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

type API struct {
	Services    *service.Services
	Sessions    session.Registry
	Auth        *auth.Manager
	Origins     []string
	HistoryDays int
	Now         func() time.Time
}

func (a *API) Router() http.Handler {
	origins := a.Origins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", a.handleCategories)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
			r.With(a.authMiddleware).Post("/logout", a.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.authMiddleware)
			r.Get("/me", a.handleMe)
			r.Patch("/me", a.handleUpdateProfile)
			r.Get("/leaderboard", a.handleLeaderboard)
			r.Get("/points/history", a.handleHistory)
			r.Get("/points/today", a.handleToday)
			r.Get("/activity", a.handleActivity)

			r.Route("/quests", func(r chi.Router) {
				r.Get("/", a.handleListQuests)
				r.Post("/", a.handleCreateQuest)
				r.Get("/completed", a.handleListCompleted)
				r.Get("/{ref}", a.handleGetQuest)
				r.Delete("/{ref}", a.handleDeleteQuest)
				r.Post("/{ref}/complete", a.handleCompleteQuest)
			})
		})
	})

	return r
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
