package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// VehicleTelemetry is the latest reported state of one live vehicle.
// A record is always replaced as a whole, never merged.
type VehicleTelemetry struct {
	VehicleID     string   `json:"vehicleId"`
	VehiclePlate  string   `json:"vehiclePlate"`
	TripID        string   `json:"tripId"`
	OperatorClass string   `json:"operatorClass"`
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	Lat           float64  `json:"lat"`
	Lng           float64  `json:"lng"`
	Speed         float64  `json:"speed"`
	Heading       *float64 `json:"heading"`
	// LastUpdated is stamped by the registry in unix milliseconds.
	LastUpdated int64 `json:"lastUpdated,omitempty"`
}

// Stationary reports whether the vehicle sent no heading.
func (t VehicleTelemetry) Stationary() bool {
	return t.Heading == nil
}

func (t VehicleTelemetry) Validate() error {
	if strings.TrimSpace(t.VehicleID) == "" {
		return fmt.Errorf("vehicleId: missing required field: %w", ErrMalformed)
	}
	return nil
}

// Stamped returns a copy of t with LastUpdated set to now.
func (t VehicleTelemetry) Stamped(now time.Time) VehicleTelemetry {
	t.LastUpdated = now.UnixMilli()
	return t
}

func (t VehicleTelemetry) LastUpdatedTime() time.Time {
	return time.UnixMilli(t.LastUpdated)
}

// UnmarshalJSON accepts loosely typed reports. Numbers sent as strings are
// parsed, anything unparsable becomes the zero value, and a heading that is
// absent, null or unparsable leaves the vehicle stationary.
func (t *VehicleTelemetry) UnmarshalJSON(data []byte) error {
	var wire struct {
		VehicleID     looseString `json:"vehicleId"`
		VehiclePlate  looseString `json:"vehiclePlate"`
		TripID        looseString `json:"tripId"`
		OperatorClass looseString `json:"operatorClass"`
		Origin        looseString `json:"origin"`
		Destination   looseString `json:"destination"`
		Lat           looseFloat  `json:"lat"`
		Lng           looseFloat  `json:"lng"`
		Speed         looseFloat  `json:"speed"`
		Heading       *looseFloat `json:"heading"`
		LastUpdated   looseFloat  `json:"lastUpdated"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*t = VehicleTelemetry{
		VehicleID:     string(wire.VehicleID),
		VehiclePlate:  string(wire.VehiclePlate),
		TripID:        string(wire.TripID),
		OperatorClass: string(wire.OperatorClass),
		Origin:        string(wire.Origin),
		Destination:   string(wire.Destination),
		Lat:           wire.Lat.value,
		Lng:           wire.Lng.value,
		Speed:         wire.Speed.value,
		LastUpdated:   int64(wire.LastUpdated.value),
	}
	if wire.Heading != nil && wire.Heading.valid {
		heading := wire.Heading.value
		t.Heading = &heading
	}
	return nil
}

type looseFloat struct {
	value float64
	valid bool
}

// UnmarshalJSON leaves f invalid for null, unparsable and non-finite input.
func (f *looseFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.set(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.set(n)
		}
	}
	return nil
}

func (f *looseFloat) set(n float64) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	*f = looseFloat{value: n, valid: true}
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = looseString(n.String())
	}
	return nil
}
