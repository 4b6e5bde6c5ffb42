// Package events exports fleet changes to external systems without ever
// blocking the realtime path.
package events

import (
	"context"
	"time"

	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/metrics"
)

type Kind string

const (
	KindUpdate  Kind = "update"
	KindOffline Kind = "offline"
)

type Event struct {
	Kind      Kind
	VehicleID string
	// Record is set for updates only.
	Record *domain.VehicleTelemetry
	At     time.Time
}

// Sink delivers events somewhere. Handle may block up to the dispatcher's
// per-event timeout.
type Sink interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

const (
	defaultQueueSize   = 1024
	defaultSinkTimeout = 2 * time.Second
)

// Dispatcher queues events and feeds them to every sink from one goroutine.
// When the queue is full new events are dropped.
type Dispatcher struct {
	queue   chan Event
	sinks   []Sink
	timeout time.Duration
	clock   func() time.Time
	logger  log.Logger
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		queue:   make(chan Event, defaultQueueSize),
		sinks:   sinks,
		timeout: defaultSinkTimeout,
		clock:   time.Now,
		logger:  log.WithName("events"),
	}
}

func (d *Dispatcher) Sinks() []Sink {
	return d.sinks
}

func (d *Dispatcher) enqueue(event Event) {
	if len(d.sinks) == 0 {
		return
	}
	select {
	case d.queue <- event:
	default:
		metrics.SinkFailures.WithLabelValues("queue").Inc()
		d.logger.Warn("event queue full, dropping event", "kind", string(event.Kind), "vehicleId", event.VehicleID)
	}
}

func (d *Dispatcher) VehicleUpdated(record domain.VehicleTelemetry) {
	d.enqueue(Event{Kind: KindUpdate, VehicleID: record.VehicleID, Record: &record, At: d.clock()})
}

func (d *Dispatcher) VehicleOffline(vehicleID string) {
	d.enqueue(Event{Kind: KindOffline, VehicleID: vehicleID, At: d.clock()})
}

// Start delivers queued events until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	for {
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		case <-ctx.Done():
			return nil
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Handle(sinkCtx, event)
		cancel()
		if err != nil {
			metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
			d.logger.Error(err, "sink failed to handle event", "sink", sink.Name(), "kind", string(event.Kind), "vehicleId", event.VehicleID)
		}
	}
}
