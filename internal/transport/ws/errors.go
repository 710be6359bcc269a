package ws

import "errors"

var (
	// ErrSessionShutdown is emitted when the server requests a session shutdown.
	ErrSessionShutdown = errors.New("websocket session shutdown")
	// ErrSlowClient closes a session whose send queue is full.
	ErrSlowClient = errors.New("websocket client too slow")
)
