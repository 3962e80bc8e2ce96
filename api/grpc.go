// Package api exposes the match room over a gRPC bidirectional stream and over
// WebSocket. Both carry message envelopes encoded with msgpack.
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/service/i"
	"github.com/vmihailenco/msgpack/v5"
	grpc "google.golang.org/grpc"
)

const (
	serviceName    = "battleship.Lobby"
	connectMethod  = "/" + serviceName + "/Connect"
	msgpackCodecID = "msgpack"
)

// ErrConnClosed is returned by a closed transport connection.
var ErrConnClosed = errors.New("connection closed")

// Codec encodes gRPC messages with msgpack. Servers install it with
// grpc.ForceServerCodec and clients with grpc.ForceCodec.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (Codec) Name() string {
	return msgpackCodecID
}

// LobbyServer is the handler type of the Lobby service.
type LobbyServer interface {
	Connect(grpc.ServerStream) error
}

var lobbyServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LobbyServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "api/grpc.go",
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(LobbyServer).Connect(stream)
}

// Server runs one session per Connect stream.
type Server struct {
	sessions i.SessionServer
	logger   i.Logger
}

// RegisterLobbyServer registers the Lobby service on gsr.
func RegisterLobbyServer(gsr grpc.ServiceRegistrar, sessions i.SessionServer, logger i.Logger) error {
	if sessions == nil {
		return errors.New("lobby server needs a session server")
	}
	gsr.RegisterService(&lobbyServiceDesc, &Server{sessions: sessions, logger: logger})
	return nil
}

// Connect serves the stream until the session ends. A session ending is not an
// RPC failure, so the stream always completes cleanly.
func (s *Server) Connect(stream grpc.ServerStream) error {
	conn := newStreamConn(stream, "grpc", nil)
	if err := s.sessions.Serve(stream.Context(), conn); err != nil {
		s.logger.Info(fmt.Sprintf("grpc session ended: %v", err))
	}
	return nil
}

// Dial opens a Connect stream on cc. Closing the returned Conn ends the stream.
func Dial(ctx context.Context, cc grpc.ClientConnInterface) (i.Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := cc.NewStream(ctx, &lobbyServiceDesc.Streams[0], connectMethod, grpc.ForceCodec(Codec{}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening lobby stream: %w", err)
	}
	return newStreamConn(stream, "grpc-client", func() {
		_ = stream.CloseSend()
		cancel()
	}), nil
}

// msgStream is the part of grpc.ServerStream and grpc.ClientStream a
// connection needs.
type msgStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
	Context() context.Context
}

// streamConn adapts a gRPC stream to i.Conn. A pump goroutine feeds Recv so
// that Close can unblock a pending read.
type streamConn struct {
	stream  msgStream
	addr    string
	in      chan *message.Envelope
	recvErr chan error
	closed  chan struct{}
	once    sync.Once
	onClose func()
}

func newStreamConn(stream msgStream, addr string, onClose func()) *streamConn {
	c := &streamConn{
		stream:  stream,
		addr:    addr,
		in:      make(chan *message.Envelope),
		recvErr: make(chan error, 1),
		closed:  make(chan struct{}),
		onClose: onClose,
	}
	go c.pump()
	return c
}

func (c *streamConn) pump() {
	for {
		env := new(message.Envelope)
		if err := c.stream.RecvMsg(env); err != nil {
			c.recvErr <- err
			return
		}
		select {
		case c.in <- env:
		case <-c.closed:
			return
		}
	}
}

func (c *streamConn) Send(m message.Message) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	env, err := message.Wrap(m)
	if err != nil {
		return err
	}
	return c.stream.SendMsg(env)
}

func (c *streamConn) Recv() (message.Message, error) {
	select {
	case env := <-c.in:
		return env.Open()
	case err := <-c.recvErr:
		select {
		case <-c.closed:
			return nil, ErrConnClosed
		default:
			return nil, err
		}
	case <-c.closed:
		return nil, ErrConnClosed
	}
}

func (c *streamConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		if c.onClose != nil {
			c.onClose()
		}
	})
	return nil
}

func (c *streamConn) RemoteAddr() string {
	return c.addr
}
