// Package netsrv implements the async TCP connection server: an accept
// loop handing each connection its own goroutine that cycles through
// Receiving -> Dispatching -> Sending -> Receiving, with
// golang.org/x/sync/errgroup giving the whole server one cancellation
// path instead of a global running flag.
package netsrv

import (
	"context"
	"net"

	"github.com/mensah-dev/brokerd/internal/bufferpool"
	"github.com/mensah-dev/brokerd/internal/protocol"
	"github.com/mensah-dev/brokerd/internal/session"
	"github.com/mensah-dev/brokerd/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server accepts TCP connections and dispatches each line received on
// them through a protocol.Handler.
type Server struct {
	addr    string
	pool    *bufferpool.Pool
	handler *protocol.Handler
	logger  *zap.Logger

	listener net.Listener
}

// New builds a Server that will listen on addr, using pool to hand out
// per-connection receive buffers and handler to dispatch commands.
func New(addr string, pool *bufferpool.Pool, handler *protocol.Handler) *Server {
	return &Server{
		addr:    addr,
		pool:    pool,
		handler: handler,
		logger:  zap.L().Named("netsrv"),
	}
}

// Addr returns the server's bound address. Valid only after Listen or
// Run has bound the socket; primarily useful in tests that bind to
// ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listen binds the listening socket synchronously, so a caller (see
// internal/agent) can observe a bind failure immediately instead of
// only after handing the server to a background goroutine.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Serve accepts and handles connections on an already-bound listener
// until ctx is canceled. Each accepted connection is handled in its own
// goroutine managed by an errgroup, so one misbehaving connection can
// never block the accept loop or a sibling connection.
func (s *Server) Serve(ctx context.Context) error {
	ln := s.listener
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("accept failed", zap.Error(err))
				continue
			}

			group.Go(func() error {
				s.serve(ctx, conn)
				return nil
			})
		}
	})

	return group.Wait()
}

// Run is a convenience wrapper that binds and serves in one call,
// useful for tests and any caller that doesn't need to observe the bind
// step separately.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// serve drives one connection's Receiving -> Dispatching -> Sending
// cycle until the peer disconnects or ctx is canceled. Reads land in the
// session's pooled fixed-size buffer; Session.Feed reassembles that raw
// stream into complete commands before anything is dispatched.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	ctx, span := telemetry.ConnectionOpened(ctx)
	defer telemetry.ConnectionClosed(span)

	sess := session.New(conn, s.pool)
	defer func() {
		if err := sess.Close(); err != nil {
			s.logger.Debug("close failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		n, err := conn.Read(sess.Buffer())
		if n > 0 {
			for _, line := range sess.Feed(sess.Buffer()[:n]) {
				reply := s.handler.Handle(ctx, line, sess)
				if _, werr := conn.Write([]byte(reply)); werr != nil {
					s.logger.Debug("write failed", zap.Error(werr))
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}
