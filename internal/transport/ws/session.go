package ws

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"bizdash-go/internal/domain/session"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	sendQueue    = 32
)

// Session is one subscribed dashboard tab. Frames are queued and written
// by a single goroutine; client messages other than control frames are
// ignored.
type Session struct {
	conn   *Connection
	send   chan []byte
	logger session.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	closed atomic.Bool
}

func NewSession(parent context.Context, conn *Connection, logger session.Logger) *Session {
	ctx, cancel := context.WithCancelCause(parent)
	return &Session{
		conn:   conn,
		send:   make(chan []byte, sendQueue),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Session) ID() string {
	return s.conn.ID()
}

// Enqueue hands a frame to the writer. A full queue closes the session.
func (s *Session) Enqueue(frame []byte) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		s.Close(ErrSlowClient)
		return false
	}
}

// Run blocks until the client disconnects or the session is closed, then
// releases the socket.
func (s *Session) Run() error {
	go s.readLoop()
	err := s.writeLoop()
	s.Close(err)
	if cerr := s.conn.Close(); cerr != nil {
		s.logger.Warn("[ws] session %s connection close failed: %v", s.ID(), cerr)
	}
	return err
}

func (s *Session) writeLoop() error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			cause := context.Cause(s.ctx)
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Second)
			if errors.Is(cause, ErrSessionShutdown) {
				return nil
			}
			return cause
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame, writeTimeout); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, nil, writeTimeout); err != nil {
				return err
			}
		}
	}
}

func (s *Session) readLoop() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.cancel(ErrSessionShutdown)
			} else {
				s.cancel(err)
			}
			return
		}
	}
}

// Close stops the session; Run returns shortly after.
func (s *Session) Close(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel(reason)
}
