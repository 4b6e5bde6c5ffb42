package domain

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Bus", func() {
	It("falls back to the unassigned route", func() {
		Expect(Bus{ID: "BUS-42"}.RouteDescriptor()).To(Equal(UnassignedRoute))
		Expect(Bus{ID: "BUS-42", Route: &Route{}}.RouteDescriptor()).To(Equal(UnassignedRoute))
	})

	It("describes an assigned route by number and name", func() {
		bus := Bus{ID: "BUS-42", Route: &Route{RouteNumber: "138", RouteName: "Pettah - Homagama"}}
		Expect(bus.RouteDescriptor()).To(Equal("138 - Pettah - Homagama"))
	})
})

var _ = Describe("Driver", func() {
	It("is disabled unless active", func() {
		Expect(Driver{Status: DriverStatusActive}.Disabled()).To(BeFalse())
		Expect(Driver{Status: DriverStatusInactive}.Disabled()).To(BeTrue())
	})
})
