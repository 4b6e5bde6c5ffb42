package gateway

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/technopolitica/fleet-live/internal/domain"
)

var _ = Describe("wire protocol", func() {
	DescribeTable("decodes trip-ended payloads",
		func(payload string, expected string) {
			vehicleID, err := decodeTripEnded(json.RawMessage(payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(vehicleID).To(Equal(expected))
		},
		Entry("object", `{"vehicleId": "BUS-42"}`, "BUS-42"),
		Entry("bare string", `"BUS-42"`, "BUS-42"),
	)

	DescribeTable("rejects trip-ended payloads without a vehicle",
		func(payload string) {
			_, err := decodeTripEnded(json.RawMessage(payload))
			Expect(errors.Is(err, domain.ErrMalformed)).To(BeTrue())
		},
		Entry("empty object", `{}`),
		Entry("blank string", `"  "`),
		Entry("number", `42`),
	)

	It("rejects telemetry without a vehicle id", func() {
		_, err := decodeReport(json.RawMessage(`{"lat": 6.9}`))
		Expect(errors.Is(err, domain.ErrMalformed)).To(BeTrue())
	})

	It("rejects frames without an event", func() {
		_, err := decodeEnvelope([]byte(`{"data": {}}`))
		Expect(errors.Is(err, domain.ErrMalformed)).To(BeTrue())
		_, err = decodeEnvelope([]byte(`not json`))
		Expect(errors.Is(err, domain.ErrMalformed)).To(BeTrue())
	})

	It("encodes an empty snapshot as an empty array", func() {
		Expect(encodeSnapshot(nil)).To(MatchJSON(`{"event": "fleet-snapshot", "data": []}`))
	})

	It("strips the server stamp from updates", func() {
		frame, err := encodeUpdate(domain.VehicleTelemetry{VehicleID: "BUS-42", LastUpdated: 123})
		Expect(err).NotTo(HaveOccurred())
		var envelope Envelope
		Expect(json.Unmarshal(frame, &envelope)).To(Succeed())
		Expect(envelope.Event).To(Equal(EventFleetUpdate))
		Expect(string(envelope.Data)).NotTo(ContainSubstring("lastUpdated"))
	})

	It("encodes offline notices", func() {
		Expect(encodeOffline("BUS-42")).To(MatchJSON(`{"event": "fleet-offline", "data": {"vehicleId": "BUS-42"}}`))
	})
})
