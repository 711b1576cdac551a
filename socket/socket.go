package socket

import (
	"errors"
)

// Event is a dispatch key. On the wire, in compat mode, it is also the
// message text itself.
type Event = string

const (
	// EventConnection fires on a server once per accepted peer, or once per
	// datagram for UDP.
	EventConnection Event = "connection"

	// EventMessage fires for every inbound message on message-oriented
	// transports, ahead of the content-keyed handler.
	EventMessage Event = "message"
)

// Handler receives the decoded payload text of one message.
type Handler func(data string)

// ConnectionHandler receives a socket when a server sees a new peer.
type ConnectionHandler func(s *Socket)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrUnsupported      = errors.New("operation unsupported on this transport")
	ErrKindMismatch     = errors.New("message kind differs from payload in compat mode")
	ErrInvalidMessage   = errors.New("invalid message format")
	ErrListenerActive   = errors.New("server already has a live listener")
)
