package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/technopolitica/fleet-live/internal/log"
)

func fleetHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, env.Fleet.SnapshotAll())
	}
}

// NewBusesRouter serves the public bus lookup used to resolve a plate and a
// route before starting a trip.
func NewBusesRouter(env *Env, logger log.Logger) *chi.Mux {
	busesRouter := chi.NewRouter()
	busesRouter.Get("/{busID}", func(w http.ResponseWriter, r *http.Request) {
		busID := chi.URLParam(r, "busID")
		bus, err := env.Buses.FetchBus(r.Context(), busID)
		if err != nil {
			renderError(w, r, logger, fmt.Errorf("bus %s: %w", busID, err))
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, bus)
	})
	return busesRouter
}
