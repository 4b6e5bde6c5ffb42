package cache

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/test/testutils"
)

var _ = Describe("Mirror against redis", Ordered, Label("integration"), func() {
	var mirror *Mirror

	BeforeAll(func(ctx context.Context) {
		server, err := testutils.StartRedisServer(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(server.Terminate)

		opts := NewOptions()
		opts.Addr = server.Addr
		opts.Key = "fleet:test"
		mirror, err = New(ctx, opts)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mirror.Close)
	})

	It("round-trips the live fleet", func(ctx context.Context) {
		heading := 45.0
		records := []domain.VehicleTelemetry{
			{VehicleID: "BUS-42", Lat: 6.9, Lng: 79.8, Heading: &heading, LastUpdated: 1700000000000},
			{VehicleID: "BUS-7", Speed: 3, LastUpdated: 1700000000500},
		}
		for _, record := range records {
			Expect(mirror.Store(ctx, record)).To(Succeed())
		}
		Expect(mirror.Load(ctx)).To(Equal(records))

		Expect(mirror.Delete(ctx, "BUS-42")).To(Succeed())
		Expect(mirror.Delete(ctx, "BUS-42")).To(Succeed())
		Expect(mirror.Load(ctx)).To(Equal(records[1:]))
	})
})
