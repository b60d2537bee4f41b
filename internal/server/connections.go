package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tablesync/tablesync/pkg/transport"
)

type trackedConn struct {
	conn *transport.Connection
	ip   string
}

// connectionSet tracks live transport connections by remote IP for the
// connection limiter and shutdown.
type connectionSet struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]trackedConn
	byIP  map[string]map[uuid.UUID]struct{}
}

func newConnectionSet() *connectionSet {
	return &connectionSet{
		conns: make(map[uuid.UUID]trackedConn),
		byIP:  make(map[string]map[uuid.UUID]struct{}),
	}
}

func (s *connectionSet) add(conn *transport.Connection, ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ID()] = trackedConn{conn: conn, ip: ip}
	ids, ok := s.byIP[ip]
	if !ok {
		ids = make(map[uuid.UUID]struct{})
		s.byIP[ip] = ids
	}
	ids[conn.ID()] = struct{}{}
}

func (s *connectionSet) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.conns[id]
	if !ok {
		return
	}
	delete(s.conns, id)
	ids := s.byIP[tc.ip]
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.byIP, tc.ip)
	}
}

func (s *connectionSet) countByIP(ip string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIP[ip])
}

// oldestByIP returns the longest lived connection of ip.
func (s *connectionSet) oldestByIP(ip string) (*transport.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest *transport.Connection
	for id := range s.byIP[ip] {
		c := s.conns[id].conn
		if oldest == nil || c.OpenedAt().Before(oldest.OpenedAt()) {
			oldest = c
		}
	}
	return oldest, oldest != nil
}

func (s *connectionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// all returns a snapshot so callers can close connections without holding
// the lock.
func (s *connectionSet) all() []*transport.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*transport.Connection, 0, len(s.conns))
	for _, tc := range s.conns {
		out = append(out, tc.conn)
	}
	return out
}
