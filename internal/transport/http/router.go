// Package http wires the domain services into a chi router: public
// registration and voting endpoints, JWT-gated operator endpoints, and the
// health and metrics surfaces.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the full route tree.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/operator/login", h.operatorLogin)

	r.With(h.auth.Middleware).Post("/assemblies", h.createAssembly)

	r.Route("/assemblies/{assemblyID}", func(r chi.Router) {
		r.Get("/", h.getAssembly)
		r.Post("/resolve", h.resolve)
		r.Post("/claims", h.claim)
		r.Get("/quorum", h.quorum)
		r.Get("/questions", h.listQuestions)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)
			r.Post("/start", h.transition(h.assemblies.Start))
			r.Post("/finalize", h.transition(h.assemblies.Finalize))
			r.Post("/reopen", h.transition(h.assemblies.Reopen))
			r.Post("/finish", h.transition(h.assemblies.Finish))
			r.Post("/restart", h.transition(h.assemblies.Restart))
			r.Post("/questions", h.createQuestion)
			r.Post("/registries/{registryID}/block", h.registryToggle(h.assemblies.SetRegistryVoteBlocked))
			r.Post("/registries/{registryID}/delete", h.registryToggle(h.assemblies.SetRegistryDeleted))
			r.Post("/registries/{registryID}/voter-block", h.registryToggle(h.assemblies.SetVoterBlocked))
		})
	})

	r.Route("/questions/{questionID}", func(r chi.Router) {
		r.Post("/votes", h.submitVotes)
		r.Get("/tally", h.questionTally)
		r.With(h.auth.Middleware).Post("/status", h.setQuestionStatus)
	})

	return r
}
