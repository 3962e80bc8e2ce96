package i

import (
	"context"
)

// SessionServer runs client sessions for the transports.
type SessionServer interface {
	// Serve runs a session over conn until the stream ends or ctx is cancelled.
	Serve(ctx context.Context, conn Conn) error

	// StopAll tears down every live game.
	StopAll()
}
