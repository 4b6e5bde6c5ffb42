package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"github.com/technopolitica/fleet-live/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func vehicleIDs(snapshot []domain.VehicleTelemetry) []string {
	ids := make([]string, 0, len(snapshot))
	for _, record := range snapshot {
		ids = append(ids, record.VehicleID)
	}
	return ids
}

var _ = Describe("Registry", func() {
	var reg *Registry
	var clock *fakeClock

	BeforeEach(func() {
		clock = &fakeClock{now: time.UnixMilli(1700000000000)}
		reg = New(WithClock(clock.Now))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- reg.Run(ctx) }()
		DeferCleanup(func() {
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
		Eventually(reg.Started()).Should(BeClosed())
	})

	It("starts empty", func() {
		Expect(reg.SnapshotAll()).To(BeEmpty())
		Expect(reg.SnapshotAll()).NotTo(BeNil())
	})

	It("stamps upserted records with the server time", func() {
		reg.Upsert("BUS-42", domain.VehicleTelemetry{Lat: 6.9, Lng: 79.8, Speed: 10})
		Expect(reg.SnapshotAll()).To(ConsistOf(MatchFields(IgnoreExtras, Fields{
			"VehicleID":   Equal("BUS-42"),
			"Lat":         BeNumerically("==", 6.9),
			"Lng":         BeNumerically("==", 79.8),
			"LastUpdated": Equal(int64(1700000000000)),
		})))
	})

	It("stamps with the time of the call, not of the apply", func() {
		stored := reg.Upsert("BUS-42", domain.VehicleTelemetry{})
		clock.Advance(time.Minute)
		record, ok := reg.Get("BUS-42")
		Expect(ok).To(BeTrue())
		Expect(record).To(Equal(stored))
		Expect(record.LastUpdated).To(Equal(int64(1700000000000)))
	})

	It("replaces rather than merges on repeated upserts", func() {
		heading := 90.0
		reg.Upsert("BUS-42", domain.VehicleTelemetry{VehiclePlate: "NB-1234", Lat: 1, Heading: &heading})
		reg.Upsert("BUS-42", domain.VehicleTelemetry{Lat: 2})

		record, ok := reg.Get("BUS-42")
		Expect(ok).To(BeTrue())
		Expect(record.Lat).To(BeNumerically("==", 2))
		Expect(record.VehiclePlate).To(BeEmpty())
		Expect(record.Heading).To(BeNil())
		Expect(reg.Len()).To(Equal(1))
	})

	It("removes idempotently", func() {
		reg.Upsert("BUS-42", domain.VehicleTelemetry{})
		reg.Remove("BUS-42")
		reg.Remove("BUS-42")
		reg.Remove("never-seen")
		Expect(reg.SnapshotAll()).To(BeEmpty())
	})

	It("returns snapshots that later writes cannot change", func() {
		reg.Upsert("BUS-1", domain.VehicleTelemetry{Lat: 1})
		snapshot := reg.SnapshotAll()
		reg.Upsert("BUS-1", domain.VehicleTelemetry{Lat: 5})
		reg.Upsert("BUS-2", domain.VehicleTelemetry{})
		Expect(snapshot).To(HaveLen(1))
		Expect(snapshot[0].Lat).To(BeNumerically("==", 1))
	})

	It("orders snapshots by vehicle id", func() {
		for _, id := range []string{"c", "a", "b"} {
			reg.Upsert(id, domain.VehicleTelemetry{})
		}
		Expect(vehicleIDs(reg.SnapshotAll())).To(Equal([]string{"a", "b", "c"}))
	})

	It("applies one writer's updates in submission order", func() {
		for i := 0; i < 500; i++ {
			reg.Upsert("BUS-42", domain.VehicleTelemetry{Speed: float64(i)})
		}
		record, _ := reg.Get("BUS-42")
		Expect(record.Speed).To(BeNumerically("==", 499))
	})

	It("tolerates concurrent writers", func() {
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 100; i++ {
					reg.Upsert(fmt.Sprintf("BUS-%d", w), domain.VehicleTelemetry{Speed: float64(i)})
				}
			}(w)
		}
		wg.Wait()
		Expect(reg.SnapshotAll()).To(HaveLen(8))
		Expect(reg.SnapshotAll()).To(HaveEach(HaveField("Speed", BeNumerically("==", 99))))
	})

	It("expires records older than the cutoff", func() {
		reg.Upsert("old", domain.VehicleTelemetry{})
		clock.Advance(time.Minute)
		reg.Upsert("fresh", domain.VehicleTelemetry{})

		expired := reg.Expire(clock.Now().Add(-30 * time.Second))
		Expect(vehicleIDs(expired)).To(Equal([]string{"old"}))
		Expect(vehicleIDs(reg.SnapshotAll())).To(Equal([]string{"fresh"}))
	})

	It("restores records without overwriting live ones", func() {
		reg.Upsert("BUS-1", domain.VehicleTelemetry{Lat: 9})
		restored := reg.Restore([]domain.VehicleTelemetry{
			{VehicleID: "BUS-1", Lat: 1, LastUpdated: 1},
			{VehicleID: "BUS-2", Lat: 2, LastUpdated: 2},
			{Lat: 3},
		})
		Expect(restored).To(Equal(1))
		record, _ := reg.Get("BUS-2")
		Expect(record.LastUpdated).To(Equal(int64(2)))
		record, _ = reg.Get("BUS-1")
		Expect(record.Lat).To(BeNumerically("==", 9))
	})
})

var _ = Describe("a stopped Registry", func() {
	It("does not block callers", func() {
		reg := New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(reg.Run(ctx)).To(Succeed())

		reg.Upsert("BUS-42", domain.VehicleTelemetry{})
		reg.Remove("BUS-42")
		Expect(reg.Len()).To(BeZero())
	})
})
