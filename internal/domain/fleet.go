//go:generate go run github.com/abice/go-enum@v0.5.6 --marshal

package domain

import (
	"context"
	"strings"
)

// ENUM(active, inactive)
type DriverStatus int

type FleetManager struct {
	ID          string `json:"fleetManagerId"`
	CompanyName string `json:"companyName"`
}

type Route struct {
	ID          string `json:"routeId"`
	RouteNumber string `json:"routeNumber"`
	RouteName   string `json:"routeName"`
	Color       string `json:"color,omitempty"`
}

// Descriptor is the label a trip records for this route.
func (route Route) Descriptor() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{route.RouteNumber, route.RouteName} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " - ")
}

type Bus struct {
	ID             string `json:"busId"`
	LicensePlate   string `json:"licensePlate"`
	FleetManagerID string `json:"fleetManagerId"`
	Route          *Route `json:"route,omitempty"`
}

func (bus Bus) RouteDescriptor() string {
	if bus.Route == nil {
		return UnassignedRoute
	}
	if descriptor := bus.Route.Descriptor(); descriptor != "" {
		return descriptor
	}
	return UnassignedRoute
}

type Driver struct {
	ID             string       `json:"driverId"`
	FullName       string       `json:"fullName"`
	FleetManagerID string       `json:"fleetManagerId"`
	Status         DriverStatus `json:"status"`
}

func (driver Driver) Disabled() bool {
	return driver.Status != DriverStatusActive
}

type FleetRepository interface {
	FetchBus(ctx context.Context, busID string) (Bus, error)
	FetchDriver(ctx context.Context, driverID string) (Driver, error)
}
