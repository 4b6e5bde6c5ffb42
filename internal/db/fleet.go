package db

import (
	"context"
	"fmt"

	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/technopolitica/fleet-live/internal/domain"
)

//go:embed queries/fetch-bus.sql
var fetchBusQuery string

func (repo Repository) FetchBus(ctx context.Context, busID string) (bus domain.Bus, err error) {
	rows, err := repo.Query(ctx, fetchBusQuery, pgx.NamedArgs{"id": busID})
	if err != nil {
		err = fmt.Errorf("failed to execute query: %w", err)
		return
	}

	busDTOs, err := pgx.CollectRows(rows, pgx.RowToStructByName[BusDTO])
	if err != nil {
		err = fmt.Errorf("failed to map row to BusDTO: %w", err)
		return
	}
	if len(busDTOs) == 0 {
		err = domain.ErrNotFound
		return
	}

	bus = busFromDTO(busDTOs[0])
	return
}

//go:embed queries/fetch-driver.sql
var fetchDriverQuery string

func (repo Repository) FetchDriver(ctx context.Context, driverID string) (driver domain.Driver, err error) {
	rows, err := repo.Query(ctx, fetchDriverQuery, pgx.NamedArgs{"id": driverID})
	if err != nil {
		err = fmt.Errorf("failed to execute query: %w", err)
		return
	}

	driverDTOs, err := pgx.CollectRows(rows, pgx.RowToStructByName[DriverDTO])
	if err != nil {
		err = fmt.Errorf("failed to map row to DriverDTO: %w", err)
		return
	}
	if len(driverDTOs) == 0 {
		err = domain.ErrNotFound
		return
	}

	driver = driverFromDTO(driverDTOs[0])
	return
}
