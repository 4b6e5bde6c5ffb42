//go:generate go run github.com/abice/go-enum@v0.5.6 --marshal

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ENUM(active, completed)
type TripStatus int

const UnassignedRoute = "Unassigned Route"

// Trip is one driving session binding a driver to a vehicle.
type Trip struct {
	ID        uuid.UUID  `json:"tripId"`
	DriverID  string     `json:"driverId"`
	VehicleID string     `json:"vehicleId"`
	Route     string     `json:"route"`
	Status    TripStatus `json:"status"`
	StartTime time.Time  `json:"startTimestamp"`
	EndTime   *time.Time `json:"endTimestamp,omitempty"`
}

func (trip Trip) Active() bool {
	return trip.Status == TripStatusActive
}

type StartTripParams struct {
	DriverID  string
	VehicleID string
}

type CompleteTripParams struct {
	TripID  uuid.UUID
	EndTime time.Time
}

type TripRepository interface {
	FetchActiveTripByDriver(ctx context.Context, driverID string) (Trip, error)
	FetchActiveTripByVehicle(ctx context.Context, vehicleID string) (Trip, error)
	InsertTrip(ctx context.Context, trip Trip) error
	CompleteTrip(ctx context.Context, params CompleteTripParams) (Trip, error)
}
