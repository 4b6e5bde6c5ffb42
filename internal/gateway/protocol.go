package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/technopolitica/fleet-live/internal/domain"
)

const (
	EventTelemetryReport = "telemetry-report"
	EventTripEnded       = "trip-ended"
	EventFleetSnapshot   = "fleet-snapshot"
	EventFleetUpdate     = "fleet-update"
	EventFleetOffline    = "fleet-offline"
)

// Envelope is the frame format on the wire: {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type OfflineNotice struct {
	VehicleID string `json:"vehicleId"`
}

func encodeFrame(event string, data any) (frame []byte, err error) {
	payload, err := json.Marshal(data)
	if err != nil {
		err = fmt.Errorf("failed to encode %s payload: %w", event, err)
		return
	}
	frame, err = json.Marshal(Envelope{Event: event, Data: payload})
	return
}

func encodeSnapshot(snapshot []domain.VehicleTelemetry) ([]byte, error) {
	if snapshot == nil {
		snapshot = []domain.VehicleTelemetry{}
	}
	return encodeFrame(EventFleetSnapshot, snapshot)
}

// encodeUpdate rebroadcasts a report as received; the server stamp is
// reserved for snapshots.
func encodeUpdate(report domain.VehicleTelemetry) ([]byte, error) {
	report.LastUpdated = 0
	return encodeFrame(EventFleetUpdate, report)
}

func encodeOffline(vehicleID string) ([]byte, error) {
	return encodeFrame(EventFleetOffline, OfflineNotice{VehicleID: vehicleID})
}

func decodeEnvelope(frame []byte) (envelope Envelope, err error) {
	err = json.Unmarshal(frame, &envelope)
	if err != nil {
		err = fmt.Errorf("invalid frame: %w", domain.ErrMalformed)
		return
	}
	if envelope.Event == "" {
		err = fmt.Errorf("frame has no event name: %w", domain.ErrMalformed)
	}
	return
}

func decodeReport(data json.RawMessage) (report domain.VehicleTelemetry, err error) {
	if err = json.Unmarshal(data, &report); err != nil {
		err = fmt.Errorf("invalid telemetry payload: %w", domain.ErrMalformed)
		return
	}
	err = report.Validate()
	return
}

// decodeTripEnded accepts either {"vehicleId": "..."} or a bare JSON string.
func decodeTripEnded(data json.RawMessage) (vehicleID string, err error) {
	var notice OfflineNotice
	if json.Unmarshal(data, &notice) == nil {
		vehicleID = notice.VehicleID
	} else if json.Unmarshal(data, &vehicleID) != nil {
		err = fmt.Errorf("invalid trip-ended payload: %w", domain.ErrMalformed)
		return
	}
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		err = fmt.Errorf("vehicleId: missing required field: %w", domain.ErrMalformed)
	}
	return
}
