package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/technopolitica/fleet-live/internal/domain"
)

type BusDTO struct {
	ID             string  `db:"id"`
	LicensePlate   string  `db:"license_plate"`
	FleetManagerID string  `db:"fleet_manager_id"`
	RouteID        *string `db:"route_id"`
	RouteNumber    *string `db:"route_number"`
	RouteName      *string `db:"route_name"`
	Color          *string `db:"color"`
}

type DriverDTO struct {
	ID             string `db:"id"`
	FullName       string `db:"full_name"`
	FleetManagerID string `db:"fleet_manager_id"`
	Status         string `db:"status"`
}

type TripDTO struct {
	ID        uuid.UUID  `db:"id"`
	DriverID  string     `db:"driver_id"`
	BusID     string     `db:"bus_id"`
	Route     string     `db:"route"`
	Status    string     `db:"status"`
	StartTime time.Time  `db:"start_time"`
	EndTime   *time.Time `db:"end_time"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func busFromDTO(dto BusDTO) domain.Bus {
	bus := domain.Bus{
		ID:             dto.ID,
		LicensePlate:   dto.LicensePlate,
		FleetManagerID: dto.FleetManagerID,
	}
	if dto.RouteID != nil {
		bus.Route = &domain.Route{
			ID:          *dto.RouteID,
			RouteNumber: deref(dto.RouteNumber),
			RouteName:   deref(dto.RouteName),
			Color:       deref(dto.Color),
		}
	}
	return bus
}

func driverFromDTO(dto DriverDTO) domain.Driver {
	// An unrecognised status parses to the zero value, which is active; treat it as inactive instead.
	status, err := domain.ParseDriverStatus(dto.Status)
	if err != nil {
		status = domain.DriverStatusInactive
	}
	return domain.Driver{
		ID:             dto.ID,
		FullName:       dto.FullName,
		FleetManagerID: dto.FleetManagerID,
		Status:         status,
	}
}

func dtoFromTrip(trip domain.Trip) TripDTO {
	return TripDTO{
		ID:        trip.ID,
		DriverID:  trip.DriverID,
		BusID:     trip.VehicleID,
		Route:     trip.Route,
		Status:    trip.Status.String(),
		StartTime: trip.StartTime,
		EndTime:   trip.EndTime,
	}
}

func tripFromDTO(dto TripDTO) domain.Trip {
	// The trips_status check constraint only admits known statuses.
	status, _ := domain.ParseTripStatus(dto.Status)
	trip := domain.Trip{
		ID:        dto.ID,
		DriverID:  dto.DriverID,
		VehicleID: dto.BusID,
		Route:     dto.Route,
		Status:    status,
		StartTime: dto.StartTime.UTC(),
	}
	if dto.EndTime != nil {
		endTime := dto.EndTime.UTC()
		trip.EndTime = &endTime
	}
	return trip
}
