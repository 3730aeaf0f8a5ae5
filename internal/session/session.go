// Package session holds per-connection client state: a socket, a
// recycled receive buffer, a subscription set, and a log cursor
// reserved for future replay.
package session

import (
	"net"
	"sync"

	"github.com/mensah-dev/brokerd/internal/bufferpool"
	"github.com/mensah-dev/brokerd/internal/store"
)

// Session is the per-connection state owned exclusively by the
// goroutine currently serving that connection; no two goroutines ever
// touch the same session simultaneously.
type Session struct {
	Conn net.Conn

	buf    []byte
	pool   *bufferpool.Pool
	Cursor store.Cursor

	mu      sync.Mutex
	topics  map[string]struct{}
	pending []byte // bytes received after the last '\n'
}

// New creates a session that owns a buffer acquired from pool.
func New(conn net.Conn, pool *bufferpool.Pool) *Session {
	return &Session{
		Conn:   conn,
		pool:   pool,
		buf:    pool.Acquire(),
		topics: make(map[string]struct{}),
	}
}

// Buffer is the recv buffer this session's connection reads into.
func (s *Session) Buffer() []byte {
	return s.buf
}

// Subscribe inserts topic into the session's subscription set. The set
// may only grow - there is no UNSUBSCRIBE.
func (s *Session) Subscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[topic] = struct{}{}
}

// Topics returns a snapshot of the subscribed topic set. Iteration order
// is unspecified.
func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.topics))
	for t := range s.topics {
		names = append(names, t)
	}
	return names
}

// Feed appends newly received bytes to the per-session accumulator and
// returns any complete (newline-terminated) lines, retaining the
// remainder for the next call, so a command split across two reads is
// never misparsed.
func (s *Session) Feed(data []byte) []string {
	s.pending = append(s.pending, data...)

	var lines []string
	start := 0
	for i, b := range s.pending {
		if b == '\n' {
			lines = append(lines, string(s.pending[start:i]))
			start = i + 1
		}
	}
	s.pending = append([]byte(nil), s.pending[start:]...)
	return lines
}

// Close releases the session's buffer back to its pool and closes the
// underlying connection.
func (s *Session) Close() error {
	s.pool.Release(s.buf)
	return s.Conn.Close()
}
