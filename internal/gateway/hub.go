// Package gateway accepts realtime websocket sessions and fans fleet state
// out to them.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/metrics"
)

// Registry is the live fleet table the hub reads and writes.
type Registry interface {
	Upsert(vehicleID string, snapshot domain.VehicleTelemetry) domain.VehicleTelemetry
	Remove(vehicleID string)
	SnapshotAll() []domain.VehicleTelemetry
	Expire(cutoff time.Time) []domain.VehicleTelemetry
}

// Sink receives a copy of every fleet event. Implementations must not block.
type Sink interface {
	VehicleUpdated(record domain.VehicleTelemetry)
	VehicleOffline(vehicleID string)
}

type nopSink struct{}

func (nopSink) VehicleUpdated(domain.VehicleTelemetry) {}
func (nopSink) VehicleOffline(string)                  {}

type Hub struct {
	registry Registry
	sink     Sink
	opts     *Options
	logger   log.Logger
	upgrader websocket.Upgrader
	clock    func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	closing  bool
	active   sync.WaitGroup
}

type HubOption func(*Hub)

func WithSink(sink Sink) HubOption {
	return func(h *Hub) {
		if sink != nil {
			h.sink = sink
		}
	}
}

func WithLogger(logger log.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithClock(clock func() time.Time) HubOption {
	return func(h *Hub) {
		h.clock = clock
	}
}

func NewHub(registry Registry, opts *Options, hubOpts ...HubOption) *Hub {
	if opts == nil {
		opts = NewOptions()
	}
	h := &Hub{
		registry: registry,
		sink:     nopSink{},
		opts:     opts,
		logger:   log.WithName("gateway"),
		clock:    time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
	for _, opt := range hubOpts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, originURL.Host) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request to a realtime session. The role query
// parameter selects publisher or subscriber (the default); publishers may
// pre-bind a vehicle with vehicleId.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role, ok := ParseRole(r.URL.Query().Get("role"))
	if !ok {
		http.Error(w, "role: must be publisher or subscriber", http.StatusBadRequest)
		return
	}
	vehicleID := ""
	if role == RolePublisher {
		vehicleID = strings.TrimSpace(r.URL.Query().Get("vehicleId"))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := newSession(conn, role, vehicleID, h.opts, h.logger)
	if !h.attach(session) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	defer h.detach(session)

	session.logger.Info("session opened", "remote", r.RemoteAddr)
	go session.writeLoop()
	session.readLoop(h.handleFrame)
	session.close()
	<-session.written
	session.logger.Info("session closed")
}

// attach registers session and makes a registry snapshot its first frame.
// The snapshot is taken under the write lock so that any broadcast either
// reaches the session or is already reflected in its snapshot.
func (h *Hub) attach(session *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	frame, err := encodeSnapshot(h.registry.SnapshotAll())
	if err != nil {
		h.logger.Error(err, "failed to encode fleet snapshot")
		return false
	}
	session.initial = frame
	h.sessions[session.ID] = session
	h.active.Add(1)
	metrics.Sessions.WithLabelValues(string(session.Role)).Inc()
	return true
}

// detach drops the session from the fan-out set. The registry is left
// untouched: a publisher that disconnects stays live until its trip ends.
func (h *Hub) detach(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[session.ID]; !ok {
		return
	}
	delete(h.sessions, session.ID)
	h.active.Done()
	metrics.Sessions.WithLabelValues(string(session.Role)).Dec()
}

// Broadcast enqueues frame on every open session without blocking.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, session := range h.sessions {
		session.enqueue(frame)
	}
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) handleFrame(session *Session, frame []byte) {
	envelope, err := decodeEnvelope(frame)
	if err != nil {
		h.drop(session, "decode", err)
		return
	}
	switch envelope.Event {
	case EventTelemetryReport:
		report, err := decodeReport(envelope.Data)
		if err != nil {
			h.drop(session, "malformed", err)
			return
		}
		if session.Role != RolePublisher {
			h.drop(session, "forbidden", errors.New("subscribers may not report telemetry"))
			return
		}
		if !session.bind(report.VehicleID) {
			h.drop(session, "vehicle_mismatch", errors.New("session is bound to "+session.VehicleID()))
			return
		}
		h.Report(report)
	case EventTripEnded:
		vehicleID, err := decodeTripEnded(envelope.Data)
		if err != nil {
			h.drop(session, "malformed", err)
			return
		}
		if session.Role != RolePublisher {
			h.drop(session, "forbidden", errors.New("subscribers may not end trips"))
			return
		}
		if !session.bind(vehicleID) {
			h.drop(session, "vehicle_mismatch", errors.New("session is bound to "+session.VehicleID()))
			return
		}
		h.Offline(vehicleID)
	default:
		h.drop(session, "unknown_event", errors.New("unknown event "+envelope.Event))
	}
}

func (h *Hub) drop(session *Session, reason string, err error) {
	metrics.ReportsDropped.WithLabelValues(reason).Inc()
	session.logger.Debug("dropped inbound frame", "reason", reason, "error", err)
}

// Report stores a telemetry report and rebroadcasts it to every session,
// the sender included.
func (h *Hub) Report(report domain.VehicleTelemetry) {
	frame, err := encodeUpdate(report)
	if err != nil {
		h.logger.Error(err, "failed to encode fleet update", "vehicleId", report.VehicleID)
		return
	}
	record := h.registry.Upsert(report.VehicleID, report)
	h.Broadcast(frame)
	metrics.ReportsReceived.Inc()
	h.sink.VehicleUpdated(record)
	h.logger.Debug("telemetry report", "vehicleId", report.VehicleID, "lat", report.Lat, "lng", report.Lng)
}

// Offline removes vehicleID from the registry and tells every session.
func (h *Hub) Offline(vehicleID string) {
	frame, err := encodeOffline(vehicleID)
	if err != nil {
		h.logger.Error(err, "failed to encode fleet offline", "vehicleId", vehicleID)
		return
	}
	h.registry.Remove(vehicleID)
	h.Broadcast(frame)
	h.sink.VehicleOffline(vehicleID)
	h.logger.Info("vehicle offline", "vehicleId", vehicleID)
}

// VehicleOffline is called when a trip ends through the control plane. The
// trip is already committed, so the vehicle is taken offline even when ctx
// is done.
func (h *Hub) VehicleOffline(_ context.Context, vehicleID string) error {
	h.Offline(vehicleID)
	return nil
}

// Start runs the stale reaper, when enabled, and closes every session once
// ctx is cancelled.
func (h *Hub) Start(ctx context.Context) error {
	if h.opts.StaleAfter > 0 {
		go h.reap(ctx)
	}
	<-ctx.Done()
	h.shutdown()
	return nil
}

func (h *Hub) reap(ctx context.Context) {
	ticker := time.NewTicker(h.opts.reapInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.ExpireStale()
		case <-ctx.Done():
			return
		}
	}
}

// ExpireStale takes every vehicle that has not reported within StaleAfter
// offline and returns their ids.
func (h *Hub) ExpireStale() (expired []string) {
	if h.opts.StaleAfter <= 0 {
		return
	}
	for _, record := range h.registry.Expire(h.clock().Add(-h.opts.StaleAfter)) {
		frame, err := encodeOffline(record.VehicleID)
		if err != nil {
			continue
		}
		h.Broadcast(frame)
		h.sink.VehicleOffline(record.VehicleID)
		expired = append(expired, record.VehicleID)
		h.logger.Info("vehicle expired", "vehicleId", record.VehicleID, "lastUpdated", record.LastUpdatedTime())
	}
	return
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.closing = true
	for _, session := range h.sessions {
		session.close()
	}
	h.mu.Unlock()
	h.active.Wait()
}
