package events

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
)

type recordingSink struct {
	name   string
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(ctx context.Context, event Event) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func startDispatcher(d *Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- d.Start(ctx) }()
	DeferCleanup(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
}

var _ = Describe("Dispatcher", func() {
	It("delivers events to every sink in order", func() {
		first := &recordingSink{name: "first"}
		second := &recordingSink{name: "second"}
		dispatcher := NewDispatcher(first, second)
		dispatcher.logger = log.NewNop()
		startDispatcher(dispatcher)

		dispatcher.VehicleUpdated(domain.VehicleTelemetry{VehicleID: "BUS-42", Lat: 6.9})
		dispatcher.VehicleOffline("BUS-42")

		for _, sink := range []*recordingSink{first, second} {
			Eventually(sink.Events).Should(HaveLen(2))
			events := sink.Events()
			Expect(events[0].Kind).To(Equal(KindUpdate))
			Expect(events[0].Record).To(PointTo(HaveField("Lat", 6.9)))
			Expect(events[1]).To(HaveField("Kind", KindOffline))
			Expect(events[1]).To(HaveField("VehicleID", "BUS-42"))
			Expect(events[1].Record).To(BeNil())
		}
	})

	It("keeps going when a sink fails", func() {
		failing := &recordingSink{name: "failing", err: errors.New("down")}
		healthy := &recordingSink{name: "healthy"}
		dispatcher := NewDispatcher(failing, healthy)
		dispatcher.logger = log.NewNop()
		startDispatcher(dispatcher)

		dispatcher.VehicleOffline("BUS-1")
		dispatcher.VehicleOffline("BUS-2")
		Eventually(healthy.Events).Should(HaveLen(2))
	})

	It("never blocks the caller when sinks stall", func() {
		stalled := &recordingSink{name: "stalled", block: make(chan struct{})}
		dispatcher := NewDispatcher(stalled)
		dispatcher.logger = log.NewNop()
		dispatcher.timeout = time.Hour
		startDispatcher(dispatcher)
		DeferCleanup(func() { close(stalled.block) })

		done := make(chan struct{})
		go func() {
			for i := 0; i < 3*defaultQueueSize; i++ {
				dispatcher.VehicleOffline("BUS-42")
			}
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("ignores events without sinks", func() {
		dispatcher := NewDispatcher()
		dispatcher.VehicleOffline("BUS-42")
		Expect(dispatcher.queue).To(BeEmpty())
	})
})
