package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
)

type StartTripRequest struct {
	VehicleID string `json:"vehicleId"`
}

type StartTripResponse struct {
	TripID    uuid.UUID `json:"tripId"`
	VehicleID string    `json:"vehicleId"`
	DriverID  string    `json:"driverId"`
	Route     string    `json:"route"`
	StartTime time.Time `json:"startTimestamp"`
}

type EndTripResponse struct {
	TripID    uuid.UUID `json:"tripId"`
	VehicleID string    `json:"vehicleId"`
	EndTime   time.Time `json:"endTimestamp"`
}

func NewTripsRouter(env *Env, logger log.Logger) *chi.Mux {
	tripsRouter := chi.NewRouter()
	tripsRouter.Post("/start", func(w http.ResponseWriter, r *http.Request) {
		var body StartTripRequest
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			logger.Debug("malformed start trip payload", "error", err)
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: []string{"request body is not valid JSON"},
			})
			return
		}
		defer r.Body.Close()

		if strings.TrimSpace(body.VehicleID) == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, domain.ApiError{
				Type:    domain.ApiErrorTypeMissingParam,
				Details: []string{"vehicleId: missing required parameter"},
			})
			return
		}

		authInfo := GetAuthInfo(r)
		trip, err := env.Trips.StartTrip(r.Context(), domain.StartTripParams{
			DriverID:  authInfo.PrincipalID,
			VehicleID: body.VehicleID,
		})
		if err != nil {
			renderError(w, r, logger, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, StartTripResponse{
			TripID:    trip.ID,
			VehicleID: trip.VehicleID,
			DriverID:  trip.DriverID,
			Route:     trip.Route,
			StartTime: trip.StartTime,
		})
	})
	tripsRouter.Post("/end", func(w http.ResponseWriter, r *http.Request) {
		authInfo := GetAuthInfo(r)
		trip, err := env.Trips.EndTrip(r.Context(), authInfo.PrincipalID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}

		response := EndTripResponse{
			TripID:    trip.ID,
			VehicleID: trip.VehicleID,
		}
		if trip.EndTime != nil {
			response.EndTime = *trip.EndTime
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, response)
	})
	tripsRouter.Get("/active", func(w http.ResponseWriter, r *http.Request) {
		authInfo := GetAuthInfo(r)
		trip, err := env.Trips.ActiveTrip(r.Context(), authInfo.PrincipalID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, trip)
	})
	return tripsRouter
}
