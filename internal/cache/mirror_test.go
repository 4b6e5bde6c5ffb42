package cache

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/events"
	"github.com/technopolitica/fleet-live/internal/log"
)

type fakeRedis struct {
	hashes  map[string]map[string]string
	expires map[string]time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: map[string]map[string]string{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	hash, ok := f.hashes[key]
	if !ok {
		hash = map[string]string{}
		f.hashes[key] = hash
	}
	for i := 0; i+1 < len(values); i += 2 {
		field := values[i].(string)
		switch v := values[i+1].(type) {
		case []byte:
			hash[field] = string(v)
		case string:
			hash[field] = v
		}
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, field := range fields {
		delete(f.hashes[key], field)
	}
	return redis.NewIntResult(int64(len(fields)), nil)
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	if f.err != nil {
		return redis.NewMapStringStringResult(nil, f.err)
	}
	result := map[string]string{}
	for field, value := range f.hashes[key] {
		result[field] = value
	}
	return redis.NewMapStringStringResult(result, nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.expires[key] = expiration
	return redis.NewBoolResult(true, f.err)
}

func (f *fakeRedis) Close() error { return nil }

var _ = Describe("Mirror", func() {
	var client *fakeRedis
	var mirror *Mirror
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		client = newFakeRedis()
		mirror = NewWithClient(client, NewOptions())
		mirror.logger = log.NewNop()
	})

	It("stores updates and refreshes the expiry", func() {
		record := domain.VehicleTelemetry{VehicleID: "BUS-42", Lat: 6.9, LastUpdated: 1700000000000}
		Expect(mirror.Handle(ctx, events.Event{Kind: events.KindUpdate, VehicleID: "BUS-42", Record: &record})).To(Succeed())
		Expect(client.hashes["fleet:live"]).To(HaveKey("BUS-42"))
		Expect(client.expires["fleet:live"]).To(Equal(time.Hour))
		Expect(mirror.Load(ctx)).To(Equal([]domain.VehicleTelemetry{record}))
	})

	It("removes vehicles that go offline", func() {
		Expect(mirror.Store(ctx, domain.VehicleTelemetry{VehicleID: "BUS-42"})).To(Succeed())
		Expect(mirror.Handle(ctx, events.Event{Kind: events.KindOffline, VehicleID: "BUS-42"})).To(Succeed())
		Expect(mirror.Load(ctx)).To(BeEmpty())
	})

	It("skips records that no longer decode", func() {
		client.hashes["fleet:live"] = map[string]string{"BUS-1": "{", "BUS-2": `{"vehicleId": "BUS-2", "lat": 1}`}
		records, err := mirror.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].VehicleID).To(Equal("BUS-2"))
	})

	It("surfaces redis failures", func() {
		client.err = errors.New("connection refused")
		Expect(mirror.Delete(ctx, "BUS-42")).To(MatchError(ContainSubstring("connection refused")))
		_, err := mirror.Load(ctx)
		Expect(err).To(HaveOccurred())
	})

	It("rejects update events without a record", func() {
		Expect(mirror.Handle(ctx, events.Event{Kind: events.KindUpdate, VehicleID: "BUS-42"})).NotTo(Succeed())
	})
})
