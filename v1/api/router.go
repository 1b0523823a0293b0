package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirkobrombin/go-redisdemo/v1/watchbus"
)

// Router returns the HTTP handler serving every endpoint of the App.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestID)
	r.Use(instrument)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", a.handleRoot)
	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Get("/cache/", a.handleCache)
	r.Post("/lock/", a.handleLock)

	r.Route("/leaderboard", func(r chi.Router) {
		r.Post("/", a.handleAddScore)
		r.Get("/", a.handleTopScores)
	})
	r.Route("/locations", func(r chi.Router) {
		r.Post("/", a.handleAddLocation)
		r.Get("/", a.handleNearby)
	})

	streamKey := func(r *http.Request) string { return chi.URLParam(r, "stream") }
	r.Route("/streams/{stream}", func(r chi.Router) {
		r.Post("/events/", a.handleAppend)
		r.Get("/watch", watchbus.SSEHandler(a.tail, streamKey))
		r.Get("/ws", watchbus.WebSocketHandler(a.tail, streamKey))
		r.Route("/groups/{group}", func(r chi.Router) {
			r.Post("/", a.handleEnsureGroup)
			r.Get("/events/", a.handleRead)
			r.Post("/acknowledge/", a.handleAcknowledge)
			r.Get("/pending/", a.handlePending)
			r.Post("/claim/", a.handleClaim)
		})
	})

	r.Route("/events/{log}", func(r chi.Router) {
		r.Post("/", a.handleRecordEvent)
		r.Get("/", a.handleRecentEvents)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", a.handleCreateUser)
		r.Get("/{id}", a.handleGetUser)
		r.Put("/{id}", a.handleUpdateUser)
		r.Delete("/{id}", a.handleDeleteUser)
	})

	return r
}
