// Package trip arbitrates which driver may report for which vehicle.
package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/metrics"
)

// FleetNotifier is told when a vehicle stops being live.
type FleetNotifier interface {
	VehicleOffline(ctx context.Context, vehicleID string) error
}

type Manager struct {
	trips    domain.TripRepository
	fleet    domain.FleetRepository
	notifier FleetNotifier
	locks    *keyedMutex
	clock    func() time.Time
	newID    func() uuid.UUID
	logger   log.Logger
}

type Option func(*Manager)

func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

func WithLogger(logger log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(trips domain.TripRepository, fleet domain.FleetRepository, notifier FleetNotifier, opts ...Option) *Manager {
	m := &Manager{
		trips:    trips,
		fleet:    fleet,
		notifier: notifier,
		locks:    newKeyedMutex(),
		clock:    time.Now,
		newID:    uuid.New,
		logger:   log.WithName("trip"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartTrip opens a trip for the driver on the vehicle. The driver and the
// vehicle stay locked for the whole check-then-insert sequence; the store's
// uniqueness constraints back this up across processes.
func (m *Manager) StartTrip(ctx context.Context, params domain.StartTripParams) (trip domain.Trip, err error) {
	defer func() { record("start", err) }()

	params.VehicleID = strings.TrimSpace(params.VehicleID)
	if params.VehicleID == "" {
		err = fmt.Errorf("vehicleId: missing required parameter: %w", domain.ErrMalformed)
		return
	}

	unlock := m.locks.Lock(driverKey(params.DriverID), vehicleKey(params.VehicleID))
	defer unlock()

	bus, err := m.fleet.FetchBus(ctx, params.VehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("vehicle %s does not exist: %w", params.VehicleID, domain.ErrNotFound)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch vehicle: %w", err)
		return
	}

	driver, err := m.fleet.FetchDriver(ctx, params.DriverID)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("driver %s does not exist: %w", params.DriverID, domain.ErrNotFound)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch driver: %w", err)
		return
	}
	if driver.Disabled() {
		err = fmt.Errorf("driver account is not active: %w", domain.ErrForbidden)
		return
	}
	if driver.FleetManagerID != bus.FleetManagerID {
		err = fmt.Errorf("not authorized to drive a vehicle of another fleet: %w", domain.ErrForbidden)
		return
	}

	err = m.checkDriverFree(ctx, params)
	if err != nil {
		return
	}
	err = m.checkVehicleFree(ctx, params)
	if err != nil {
		return
	}

	trip = domain.Trip{
		ID:        m.newID(),
		DriverID:  params.DriverID,
		VehicleID: params.VehicleID,
		Route:     bus.RouteDescriptor(),
		Status:    domain.TripStatusActive,
		StartTime: m.clock().UTC(),
	}
	err = m.trips.InsertTrip(ctx, trip)
	if errors.Is(err, domain.ErrConflict) {
		err = fmt.Errorf("the driver or the vehicle already has an active trip: %w", domain.ErrConflict)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to insert trip: %w", err)
		return
	}
	m.logger.Info("trip started", "trip", trip.ID, "driver", trip.DriverID, "vehicle", trip.VehicleID)
	return
}

func (m *Manager) checkDriverFree(ctx context.Context, params domain.StartTripParams) error {
	active, err := m.trips.FetchActiveTripByDriver(ctx, params.DriverID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch the driver's active trip: %w", err)
	}
	if active.VehicleID == params.VehicleID {
		return fmt.Errorf("already active on this vehicle, resume your trip instead: %w", domain.ErrConflict)
	}
	plate := active.VehicleID
	if other, err := m.fleet.FetchBus(ctx, active.VehicleID); err == nil && other.LicensePlate != "" {
		plate = other.LicensePlate
	}
	return fmt.Errorf("already on an active trip with another vehicle (%s): %w", plate, domain.ErrConflict)
}

func (m *Manager) checkVehicleFree(ctx context.Context, params domain.StartTripParams) error {
	_, err := m.trips.FetchActiveTripByVehicle(ctx, params.VehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch the vehicle's active trip: %w", err)
	}
	return fmt.Errorf("vehicle is currently being driven by someone else: %w", domain.ErrConflict)
}

// EndTrip completes the driver's active trip and takes its vehicle offline.
// The trip stays completed even if the notification fails.
func (m *Manager) EndTrip(ctx context.Context, driverID string) (trip domain.Trip, err error) {
	defer func() { record("end", err) }()

	unlockDriver := m.locks.Lock(driverKey(driverID))
	defer unlockDriver()

	active, err := m.trips.FetchActiveTripByDriver(ctx, driverID)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("no active trip found: %w", domain.ErrNotFound)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch active trip: %w", err)
		return
	}

	unlockVehicle := m.locks.Lock(vehicleKey(active.VehicleID))
	defer unlockVehicle()

	trip, err = m.trips.CompleteTrip(ctx, domain.CompleteTripParams{TripID: active.ID, EndTime: m.clock().UTC()})
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("no active trip found: %w", domain.ErrNotFound)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to complete trip: %w", err)
		return
	}
	m.logger.Info("trip ended", "trip", trip.ID, "driver", trip.DriverID, "vehicle", trip.VehicleID)

	if m.notifier != nil {
		if notifyErr := m.notifier.VehicleOffline(context.WithoutCancel(ctx), trip.VehicleID); notifyErr != nil {
			m.logger.Error(notifyErr, "failed to take vehicle offline", "vehicle", trip.VehicleID)
		}
	}
	return
}

// ActiveTrip returns the driver's active trip.
func (m *Manager) ActiveTrip(ctx context.Context, driverID string) (trip domain.Trip, err error) {
	trip, err = m.trips.FetchActiveTripByDriver(ctx, driverID)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("no active trip found: %w", domain.ErrNotFound)
	}
	return
}

func record(op string, err error) {
	metrics.TripOperations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
