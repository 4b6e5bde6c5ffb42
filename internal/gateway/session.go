package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/metrics"
)

type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

func ParseRole(s string) (role Role, ok bool) {
	switch Role(s) {
	case "", RoleSubscriber:
		return RoleSubscriber, true
	case RolePublisher:
		return RolePublisher, true
	}
	return
}

// Session is one realtime connection. Frames are written only by the
// session's write loop; everyone else enqueues.
type Session struct {
	ID   uuid.UUID
	Role Role

	conn   *websocket.Conn
	opts   *Options
	logger log.Logger

	// initial is written before anything in send.
	initial []byte
	send    chan []byte
	// overflow counts frames dropped since the last successful write.
	overflow atomic.Int64

	vehicleMu sync.Mutex
	vehicleID string

	closeOnce sync.Once
	closed    chan struct{}
	written   chan struct{}
}

func newSession(conn *websocket.Conn, role Role, vehicleID string, opts *Options, logger log.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:        id,
		Role:      role,
		conn:      conn,
		opts:      opts,
		logger:    logger.WithValues("session", id.String(), "role", string(role)),
		send:      make(chan []byte, opts.SendQueue),
		vehicleID: vehicleID,
		closed:    make(chan struct{}),
		written:   make(chan struct{}),
	}
}

// VehicleID is the vehicle a publisher is bound to, empty until its first report.
func (s *Session) VehicleID() string {
	s.vehicleMu.Lock()
	defer s.vehicleMu.Unlock()
	return s.vehicleID
}

// bind ties a publisher to vehicleID on first use and reports whether
// vehicleID matches the bound vehicle.
func (s *Session) bind(vehicleID string) bool {
	s.vehicleMu.Lock()
	defer s.vehicleMu.Unlock()
	if s.vehicleID == "" {
		s.vehicleID = vehicleID
	}
	return s.vehicleID == vehicleID
}

// enqueue never blocks. A full queue loses its oldest frame; a session that
// keeps overflowing for a whole queue length is closed.
func (s *Session) enqueue(frame []byte) {
	for {
		select {
		case s.send <- frame:
			return
		default:
		}
		select {
		case <-s.send:
			metrics.BroadcastDrops.Inc()
			if s.overflow.Add(1) > int64(cap(s.send)) {
				s.logger.Warn("session cannot keep up, closing")
				s.close()
				return
			}
		default:
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Done is closed once the session has been asked to close.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

func (s *Session) write(messageType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.written)
	}()

	if err := s.write(websocket.TextMessage, s.initial); err != nil {
		s.logger.Debug("failed to write snapshot", "error", err)
		s.close()
		return
	}
	for {
		select {
		case frame := <-s.send:
			if err := s.write(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("failed to write frame", "error", err)
				s.close()
				return
			}
			s.overflow.Store(0)
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("failed to write ping", "error", err)
				s.close()
				return
			}
		case <-s.closed:
			s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// readLoop hands every inbound text frame to handle until the peer goes
// away or stops answering pings.
func (s *Session) readLoop(handle func(*Session, []byte)) {
	s.conn.SetReadLimit(s.opts.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("session read failed", "error", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		if messageType != websocket.TextMessage {
			metrics.ReportsDropped.WithLabelValues("decode").Inc()
			continue
		}
		handle(s, data)
	}
}
