// Package server implements the auth router and per-connection state
// machine of components C and D: it accepts TCP connections, demands a
// HELLO(token) as the first frame, and then dispatches every subsequent
// frame on that connection to a session confined to the configured root
// directory.
package server

import (
	"context"
	"crypto/subtle"
	"net"

	"github.com/parcelio/parcel/internal/debug"
	"github.com/parcelio/parcel/internal/wire"
	"github.com/pkg/errors"
)

// Default values from spec §3 "Server configuration".
const (
	DefaultFileSizeLimit = 4294967296
	DefaultMinChunkSize  = 512
	DefaultMaxChunkSize  = 8192
	DefaultPort          = 6768
)

// Config is the server's immutable configuration for its lifetime.
type Config struct {
	RootDir       string
	Token         string
	FileSizeLimit int64
	MinChunkSize  int
	MaxChunkSize  int
}

// Server serves the connections accepted from the listener passed to
// Serve. Each authenticated connection gets its own session on its own
// goroutine, so transfer state is never shared between connections.
type Server struct {
	cfg Config
}

// New validates cfg and returns a Server ready to Serve.
func New(cfg Config) (*Server, error) {
	if cfg.RootDir == "" {
		return nil, errors.New("root directory is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("token is required")
	}
	if cfg.FileSizeLimit <= 0 {
		cfg.FileSizeLimit = DefaultFileSizeLimit
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.MinChunkSize > cfg.MaxChunkSize {
		return nil, errors.Errorf("min chunk size %d exceeds max chunk size %d", cfg.MinChunkSize, cfg.MaxChunkSize)
	}

	return &Server{cfg: cfg}, nil
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
// Each connection is handled on its own goroutine; per spec §5, transfer
// state is per-session and never shared across connections.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "accept")
		}

		go s.handleConn(ctx, conn)
	}
}

// handleConn enforces the HELLO handshake, then runs the session state
// machine for the connection's lifetime.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	frame, err := wire.Read(conn)
	if err != nil {
		debug.Log("connection %v: failed to read HELLO: %v", conn.RemoteAddr(), err)
		return
	}

	hello, ok := frame.Payload.(*wire.Hello)
	if !ok {
		debug.Log("connection %v: first frame was not HELLO", conn.RemoteAddr())
		return
	}

	if subtle.ConstantTimeCompare([]byte(hello.Token), []byte(s.cfg.Token)) != 1 {
		// spec §4.C: on mismatch, frames are silently dropped; closing the
		// connection without a response satisfies "no response at all"
		// (P7) since the client is waiting on a reply that never comes.
		debug.Log("connection %v: token mismatch, dropping", conn.RemoteAddr())
		return
	}

	sess := newSession(s.cfg)
	defer sess.cleanup()

	for {
		frame, err := wire.Read(conn)
		var resp response
		switch {
		case errors.Is(err, wire.ErrBadRequest):
			// spec §4.D "Failure semantics": malformed frame -> BAD_REQUEST,
			// and mid-transfer this also cancels the transfer.
			resp = sess.badRequest()
		case err != nil:
			debug.Log("connection %v: read error, closing: %v", conn.RemoteAddr(), err)
			return
		default:
			resp = sess.dispatch(frame)
		}

		if err := wire.Write(conn, resp.discriminant, resp.payload); err != nil {
			debug.Log("connection %v: write error, closing: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
