// Package registry holds the set of currently live vehicles.
//
// All state is owned by the goroutine running Run. Callers talk to it through
// a FIFO command queue, so writes for one vehicle are applied in the order
// they were submitted and a snapshot always reflects every command submitted
// before it.
package registry

import (
	"context"
	"sort"
	"time"

	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/metrics"
	"golang.org/x/exp/maps"
)

const defaultQueueSize = 1024

type records map[string]domain.VehicleTelemetry

type command func(records)

type Registry struct {
	commands chan command
	stopped  chan struct{}
	started  chan struct{}
	clock    func() time.Time
}

type Option func(*Registry)

// WithClock overrides the time source used to stamp LastUpdated.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

func WithQueueSize(size int) Option {
	return func(r *Registry) {
		if size > 0 {
			r.commands = make(chan command, size)
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		commands: make(chan command, defaultQueueSize),
		stopped:  make(chan struct{}),
		started:  make(chan struct{}),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies queued commands until ctx is cancelled. It must be called
// exactly once.
func (r *Registry) Run(ctx context.Context) error {
	defer close(r.stopped)
	close(r.started)
	state := make(records)
	for {
		select {
		case cmd := <-r.commands:
			cmd(state)
			metrics.RegistrySize.Set(float64(len(state)))
		case <-ctx.Done():
			return nil
		}
	}
}

// Started is closed once Run has begun serving commands.
func (r *Registry) Started() <-chan struct{} {
	return r.started
}

func (r *Registry) submit(cmd command) bool {
	select {
	case r.commands <- cmd:
		return true
	case <-r.stopped:
		return false
	}
}

// call submits cmd and waits for it to be applied. It reports false when the
// registry stopped first.
func (r *Registry) call(cmd command) bool {
	done := make(chan struct{})
	if !r.submit(func(state records) {
		cmd(state)
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-r.stopped:
		return false
	}
}

// Upsert replaces the record stored for vehicleID and returns it as stored.
// The record is stamped with the server time at the call, not when the
// registry goroutine applies it.
func (r *Registry) Upsert(vehicleID string, snapshot domain.VehicleTelemetry) domain.VehicleTelemetry {
	snapshot.VehicleID = vehicleID
	record := snapshot.Stamped(r.clock())
	r.submit(func(state records) {
		state[vehicleID] = record
	})
	return record
}

// Remove deletes the record for vehicleID. Removing an absent vehicle is a no-op.
func (r *Registry) Remove(vehicleID string) {
	r.submit(func(state records) {
		delete(state, vehicleID)
	})
}

// SnapshotAll returns a copy of every record ordered by vehicle id.
func (r *Registry) SnapshotAll() (snapshot []domain.VehicleTelemetry) {
	snapshot = []domain.VehicleTelemetry{}
	r.call(func(state records) {
		snapshot = maps.Values(state)
	})
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].VehicleID < snapshot[j].VehicleID
	})
	return
}

// Restore loads previously stamped records, keeping their LastUpdated. An
// existing record wins over a restored one.
func (r *Registry) Restore(snapshot []domain.VehicleTelemetry) (restored int) {
	r.call(func(state records) {
		for _, record := range snapshot {
			if record.VehicleID == "" {
				continue
			}
			if _, exists := state[record.VehicleID]; exists {
				continue
			}
			state[record.VehicleID] = record
			restored++
		}
	})
	return
}

// Expire removes every record last updated before cutoff and returns the
// removed records.
func (r *Registry) Expire(cutoff time.Time) (expired []domain.VehicleTelemetry) {
	r.call(func(state records) {
		for vehicleID, record := range state {
			if record.LastUpdatedTime().Before(cutoff) {
				expired = append(expired, record)
				delete(state, vehicleID)
			}
		}
	})
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].VehicleID < expired[j].VehicleID
	})
	return
}
