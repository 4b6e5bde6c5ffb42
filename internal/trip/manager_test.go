package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
)

var _ = Describe("Manager", func() {
	var store *memoryStore
	var notifier *recordingNotifier
	var manager *Manager
	var now time.Time

	start := func(driverID, vehicleID string) (domain.Trip, error) {
		return manager.StartTrip(context.Background(), domain.StartTripParams{DriverID: driverID, VehicleID: vehicleID})
	}

	BeforeEach(func() {
		now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		store = newMemoryStore()
		store.AddBus(domain.Bus{ID: "BUS-42", LicensePlate: "NB-4242", FleetManagerID: "fleet-a",
			Route: &domain.Route{RouteNumber: "138", RouteName: "Pettah - Homagama"}})
		store.AddBus(domain.Bus{ID: "BUS-7", LicensePlate: "NB-0007", FleetManagerID: "fleet-a"})
		store.AddBus(domain.Bus{ID: "BUS-99", LicensePlate: "WP-9999", FleetManagerID: "fleet-b"})
		store.AddDriver(domain.Driver{ID: "D1", FleetManagerID: "fleet-a", Status: domain.DriverStatusActive})
		store.AddDriver(domain.Driver{ID: "D2", FleetManagerID: "fleet-a", Status: domain.DriverStatusActive})
		store.AddDriver(domain.Driver{ID: "D3", FleetManagerID: "fleet-a", Status: domain.DriverStatusInactive})
		notifier = &recordingNotifier{}
		manager = NewManager(store, store, notifier,
			WithClock(func() time.Time { return now }),
			WithIDGenerator(sequentialIDs()),
			WithLogger(log.NewNop()),
		)
	})

	Describe("StartTrip", func() {
		It("opens an active trip on the vehicle's route", func() {
			trip, err := start("D1", "BUS-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(trip).To(MatchFields(IgnoreExtras, Fields{
				"DriverID":  Equal("D1"),
				"VehicleID": Equal("BUS-42"),
				"Route":     Equal("138 - Pettah - Homagama"),
				"Status":    Equal(domain.TripStatusActive),
				"StartTime": BeTemporally("==", now),
				"EndTime":   BeNil(),
			}))
			Expect(store.ActiveTrips()).To(ConsistOf(trip))
		})

		It("records an unassigned route when the vehicle has none", func() {
			trip, err := start("D1", "BUS-7")
			Expect(err).NotTo(HaveOccurred())
			Expect(trip.Route).To(Equal(domain.UnassignedRoute))
		})

		It("requires a vehicle id", func() {
			_, err := start("D1", "  ")
			Expect(errors.Is(err, domain.ErrMalformed)).To(BeTrue())
		})

		It("fails with NotFound for an unknown vehicle", func() {
			_, err := start("D1", "BUS-404")
			Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
		})

		It("forbids driving another fleet's vehicle", func() {
			_, err := start("D1", "BUS-99")
			Expect(errors.Is(err, domain.ErrForbidden)).To(BeTrue())
			Expect(store.Trips()).To(BeEmpty())
		})

		It("forbids disabled drivers", func() {
			_, err := start("D3", "BUS-42")
			Expect(errors.Is(err, domain.ErrForbidden)).To(BeTrue())
		})

		It("checks the vehicle before the driver", func() {
			_, err := start("D3", "BUS-404")
			Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
		})

		When("the driver already has an active trip", func() {
			BeforeEach(func() {
				_, err := start("D1", "BUS-42")
				Expect(err).NotTo(HaveOccurred())
			})

			It("refuses a second vehicle and names the first", func() {
				_, err := start("D1", "BUS-7")
				Expect(errors.Is(err, domain.ErrConflict)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("another vehicle (NB-4242)"))
			})

			It("refuses restarting on the same vehicle", func() {
				_, err := start("D1", "BUS-42")
				Expect(errors.Is(err, domain.ErrConflict)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("resume"))
			})

			It("refuses the vehicle to other drivers", func() {
				_, err := start("D2", "BUS-42")
				Expect(errors.Is(err, domain.ErrConflict)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("someone else"))
			})

			It("lets other drivers take other vehicles", func() {
				_, err := start("D2", "BUS-7")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.ActiveTrips()).To(HaveLen(2))
			})
		})

		It("maps a storage uniqueness violation to Conflict", func() {
			store.readDelay = 0
			conflicting := &conflictingStore{memoryStore: store}
			manager = NewManager(conflicting, store, notifier, WithLogger(log.NewNop()))
			_, err := manager.StartTrip(context.Background(), domain.StartTripParams{DriverID: "D1", VehicleID: "BUS-42"})
			Expect(errors.Is(err, domain.ErrConflict)).To(BeTrue())
		})

		It("admits exactly one of many concurrent starts on one vehicle", func() {
			store.unique = false
			store.readDelay = 5 * time.Millisecond
			for i := 0; i < 10; i++ {
				store.AddDriver(domain.Driver{ID: fmt.Sprintf("R%d", i), FleetManagerID: "fleet-a", Status: domain.DriverStatusActive})
			}

			var wg sync.WaitGroup
			var mu sync.Mutex
			succeeded := 0
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := start(fmt.Sprintf("R%d", i), "BUS-42")
					if err == nil {
						mu.Lock()
						succeeded++
						mu.Unlock()
						return
					}
					Expect(errors.Is(err, domain.ErrConflict)).To(BeTrue())
				}(i)
			}
			wg.Wait()
			Expect(succeeded).To(Equal(1))
			Expect(store.ActiveTrips()).To(HaveLen(1))
			Expect(manager.locks.size()).To(BeZero())
		})

		It("admits exactly one of many concurrent starts by one driver", func() {
			store.unique = false
			store.readDelay = 5 * time.Millisecond
			vehicles := []string{"BUS-42", "BUS-7"}
			for i := 0; i < 8; i++ {
				id := fmt.Sprintf("X%d", i)
				store.AddBus(domain.Bus{ID: id, FleetManagerID: "fleet-a"})
				vehicles = append(vehicles, id)
			}

			var wg sync.WaitGroup
			for _, vehicleID := range vehicles {
				wg.Add(1)
				go func(vehicleID string) {
					defer GinkgoRecover()
					defer wg.Done()
					start("D1", vehicleID)
				}(vehicleID)
			}
			wg.Wait()
			Expect(store.ActiveTrips()).To(HaveLen(1))
		})
	})

	Describe("EndTrip", func() {
		It("fails with NotFound without an active trip", func() {
			_, err := manager.EndTrip(context.Background(), "D1")
			Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
			Expect(notifier.Offline()).To(BeEmpty())
		})

		When("the driver has an active trip", func() {
			var started domain.Trip

			BeforeEach(func() {
				var err error
				started, err = start("D1", "BUS-42")
				Expect(err).NotTo(HaveOccurred())
				now = now.Add(time.Hour)
			})

			It("completes the trip and takes the vehicle offline once", func() {
				ended, err := manager.EndTrip(context.Background(), "D1")
				Expect(err).NotTo(HaveOccurred())
				Expect(ended).To(MatchFields(IgnoreExtras, Fields{
					"ID":        Equal(started.ID),
					"VehicleID": Equal("BUS-42"),
					"Status":    Equal(domain.TripStatusCompleted),
					"EndTime":   PointTo(BeTemporally("==", now)),
				}))
				Expect(notifier.Offline()).To(Equal([]string{"BUS-42"}))
				Expect(store.ActiveTrips()).To(BeEmpty())
			})

			It("is terminal", func() {
				_, err := manager.EndTrip(context.Background(), "D1")
				Expect(err).NotTo(HaveOccurred())
				_, err = manager.EndTrip(context.Background(), "D1")
				Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
				Expect(notifier.Offline()).To(HaveLen(1))
			})

			It("frees the driver and the vehicle", func() {
				_, err := manager.EndTrip(context.Background(), "D1")
				Expect(err).NotTo(HaveOccurred())
				_, err = start("D2", "BUS-42")
				Expect(err).NotTo(HaveOccurred())
				_, err = start("D1", "BUS-7")
				Expect(err).NotTo(HaveOccurred())
			})

			It("takes the vehicle offline when the caller goes away after completion", func() {
				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()
				store.completed = cancel

				_, err := manager.EndTrip(ctx, "D1")
				Expect(err).NotTo(HaveOccurred())
				Expect(ctx.Err()).To(MatchError(context.Canceled))
				Expect(notifier.Offline()).To(Equal([]string{"BUS-42"}))
			})

			It("keeps the trip completed when the notification fails", func() {
				notifier.err = errors.New("gateway gone")
				_, err := manager.EndTrip(context.Background(), "D1")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.ActiveTrips()).To(BeEmpty())
			})
		})
	})

	Describe("ActiveTrip", func() {
		It("returns the driver's active trip", func() {
			started, err := start("D1", "BUS-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.ActiveTrip(context.Background(), "D1")).To(Equal(started))
		})

		It("fails with NotFound when idle", func() {
			_, err := manager.ActiveTrip(context.Background(), "D2")
			Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
		})
	})
})

// conflictingStore passes the pre-checks but loses the insert race.
type conflictingStore struct {
	*memoryStore
}

func (s *conflictingStore) InsertTrip(ctx context.Context, trip domain.Trip) error {
	return domain.ErrConflict
}
