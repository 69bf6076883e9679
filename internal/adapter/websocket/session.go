package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	maxMessageSize    = 64 * 1024
	messageBufferSize = 64
)

// Session is the hub's handle on one websocket connection. Frames are queued
// on a buffered channel and written by a single goroutine, so Notify never
// blocks on a slow peer.
type Session struct {
	id         string
	identity   domain.Identity
	connection *websocket.Conn
	clock      clockwork.Clock
	metrics    *metrics.WebSocketMetrics

	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSession(connection *websocket.Conn, identity domain.Identity, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Session {
	s := &Session{
		id:          uuid.NewString(),
		identity:    identity,
		connection:  connection,
		clock:       clock,
		metrics:     m,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	connection.SetReadLimit(maxMessageSize)
	s.configurePongHandler()
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

// Notify queues a notification frame. It fails when the session is closed or
// its send buffer is full; it never waits for the peer.
func (s *Session) Notify(n domain.Notification) error {
	frame, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode %s notification: %w", n.Method, err)
	}
	return s.enqueue(frame)
}

func (s *Session) enqueue(frame []byte) error {
	select {
	case <-s.doneChannel:
		return domain.ErrSessionClosed
	default:
	}

	select {
	case s.sendChannel <- frame:
		return nil
	case <-s.doneChannel:
		return domain.ErrSessionClosed
	default:
		return domain.ErrSessionBufferFull
	}
}

func (s *Session) run() {
	ticker := s.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.wg.Done()

	for {
		select {
		case frame := <-s.sendChannel:
			start := s.clock.Now()
			s.updateWriteDeadline()
			if err := s.connection.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.terminate()
				return
			}
			if s.metrics != nil {
				s.metrics.NotificationsSent.Inc()
				s.metrics.SendDuration.Observe(s.clock.Since(start).Seconds())
			}
		case <-ticker.Chan():
			s.updateWriteDeadline()
			if err := s.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				if s.metrics != nil {
					s.metrics.PingFailures.Inc()
				}
				s.terminate()
				return
			}
		case <-s.doneChannel:
			return
		}
	}
}

// terminate closes the connection without waiting for the writer. The read
// loop observes the closed connection and ends the session.
func (s *Session) terminate() {
	s.stopOnce.Do(func() {
		close(s.doneChannel)
		_ = s.connection.Close()
	})
}

func (s *Session) stop() {
	s.terminate()
	s.wg.Wait()
}

// stopGraceful sends a close frame with reason before closing. If the session
// was already terminated it only waits for the writer. The wait is bounded by
// the write deadline: a writer stuck on a slow peer fails, calls terminate
// (a no-op by then) and exits.
func (s *Session) stopGraceful(reason string) {
	first := false
	s.stopOnce.Do(func() {
		first = true
		close(s.doneChannel)
	})

	// the writer must exit before the close frame is written
	s.wg.Wait()
	if !first {
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	s.updateWriteDeadline()
	_ = s.connection.WriteMessage(websocket.CloseMessage, closeMsg)
	_ = s.connection.Close()
}

func (s *Session) configurePongHandler() {
	s.updateReadDeadline()
	s.connection.SetPongHandler(func(string) error {
		s.updateReadDeadline()
		return nil
	})
}

func (s *Session) updateWriteDeadline() {
	_ = s.connection.SetWriteDeadline(s.clock.Now().Add(writeDeadline))
}

func (s *Session) updateReadDeadline() {
	_ = s.connection.SetReadDeadline(s.clock.Now().Add(pongDeadline))
}
