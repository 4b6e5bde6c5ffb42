package db

import (
	"context"
	"errors"
	"fmt"

	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/technopolitica/fleet-live/internal/domain"
)

func (repo Repository) fetchActiveTrip(ctx context.Context, query string, args pgx.NamedArgs) (trip domain.Trip, err error) {
	rows, err := repo.Query(ctx, query, args)
	if err != nil {
		err = fmt.Errorf("failed to execute query: %w", err)
		return
	}

	tripDTO, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[TripDTO])
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to map row to TripDTO: %w", err)
		return
	}

	trip = tripFromDTO(tripDTO)
	return
}

//go:embed queries/fetch-active-trip-by-driver.sql
var fetchActiveTripByDriverQuery string

func (repo Repository) FetchActiveTripByDriver(ctx context.Context, driverID string) (domain.Trip, error) {
	return repo.fetchActiveTrip(ctx, fetchActiveTripByDriverQuery, pgx.NamedArgs{"driver_id": driverID})
}

//go:embed queries/fetch-active-trip-by-bus.sql
var fetchActiveTripByBusQuery string

func (repo Repository) FetchActiveTripByVehicle(ctx context.Context, vehicleID string) (domain.Trip, error) {
	return repo.fetchActiveTrip(ctx, fetchActiveTripByBusQuery, pgx.NamedArgs{"bus_id": vehicleID})
}

//go:embed queries/insert-trip.sql
var insertTripQuery string

func (repo Repository) InsertTrip(ctx context.Context, trip domain.Trip) error {
	tripDTO := dtoFromTrip(trip)
	_, err := repo.Exec(ctx, insertTripQuery, pgx.NamedArgs{
		"id":         tripDTO.ID,
		"driver_id":  tripDTO.DriverID,
		"bus_id":     tripDTO.BusID,
		"route":      tripDTO.Route,
		"status":     tripDTO.Status,
		"start_time": tripDTO.StartTime,
		"end_time":   tripDTO.EndTime,
	})

	if err != nil && isActiveTripViolation(err) {
		return domain.ErrConflict
	}

	return err
}

//go:embed queries/complete-trip.sql
var completeTripQuery string

func (repo Repository) CompleteTrip(ctx context.Context, params domain.CompleteTripParams) (trip domain.Trip, err error) {
	rows, err := repo.Query(ctx, completeTripQuery, pgx.NamedArgs{"id": params.TripID, "end_time": params.EndTime})
	if err != nil {
		err = fmt.Errorf("failed to execute query: %w", err)
		return
	}

	tripDTO, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[TripDTO])
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to map row to TripDTO: %w", err)
		return
	}

	trip = tripFromDTO(tripDTO)
	return
}
