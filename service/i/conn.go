package i

import (
	"github.com/beka-birhanu/battleship-server/message"
)

// Conn is one client's ordered, reliable message stream.
type Conn interface {
	// Send writes one message. It is only called from the session's writer goroutine.
	Send(message.Message) error

	// Recv blocks until the next message arrives or the stream fails.
	Recv() (message.Message, error)

	// Close tears the stream down and unblocks a pending Recv. It is safe to call more than once.
	Close() error

	// RemoteAddr identifies the peer in logs.
	RemoteAddr() string
}
