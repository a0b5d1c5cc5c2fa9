package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Route("/room", func(r chi.Router) {
			r.Post("/create", c.createRoom)
			r.Post("/{room-id}/join", c.joinRoom)
			r.Post("/claim-host", c.claimHost)
			r.Post("/release-host", c.releaseHost)
			r.Post("/leave", c.leaveRoom)
			r.Post("/close", c.closeRoom)
		})
		r.Get("/ws/context", c.attachContext)
	})

	return r
}
