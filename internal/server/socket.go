package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"timemachine/internal/events"
)

const DefaultSocketPath = "/tmp/timemachine.sock"

// subscriberBuffer holds roughly five seconds of chunks at the default cadence.
const subscriberBuffer = 100

// SocketServer streams sample chunks to DSP clients over a Unix socket.
// It only carries samples; control is done via the HTTP API.
type SocketServer struct {
	socketPath string
	listener   net.Listener
	hub        *events.Hub
	log        zerolog.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewSocketServer creates a new Unix socket server.
func NewSocketServer(socketPath string, hub *events.Hub, log zerolog.Logger) *SocketServer {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &SocketServer{
		socketPath: socketPath,
		hub:        hub,
		log:        log.With().Str("component", "socket").Logger(),
	}
}

// Start listens on the socket path and accepts clients in the background.
func (s *SocketServer) Start(ctx context.Context) error {
	// Remove a stale socket left by a previous run
	os.Remove(s.socketPath)

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.log.Info().Str("path", s.socketPath).Msg("listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()

	return nil
}

func (s *SocketServer) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && !ne.Timeout() {
				s.log.Debug().Err(err).Msg("accept loop exiting")
				return
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.log.Info().Msg("client connected")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
			s.log.Info().Msg("client disconnected")
		}()
	}
}

// handleConnection forwards every chunk to the client until either side goes away.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sub := s.hub.Subscribe(events.Filter{Chunks: true}, subscriberBuffer)
	defer s.hub.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Clients never send; a read returning means they hung up.
	go func() {
		io.Copy(io.Discard, conn)
		cancel()
	}()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Int("chunks", sent).Uint64("dropped", sub.Dropped()).Msg("stream closed")
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if _, err := conn.Write(EncodeChunkFrame(*ev.Chunk)); err != nil {
				s.log.Warn().Err(err).Msg("write failed")
				return
			}
			sent++
		}
	}
}

// Stop closes the listener and every client connection, then waits for them.
func (s *SocketServer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
	s.log.Info().Msg("server stopped")
}

// SocketPath returns the socket path.
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}
