package attendance

import (
	"hash/fnv"
	"sync"

	"github.com/clockwise-hr/attendance-backend-go/internal/domain/attendance"
)

const (
	sessionShards = 32
	guardStripes  = 256
)

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]attendance.Session
}

// SessionRegistry is the single source of truth for "is employee X
// currently checked in". Sessions live in a sharded map so unrelated
// employees never contend on one lock; a separate stripe of operation
// guards lets the service hold a per-employee lock across the whole
// read-modify-write of a check-in or check-out, store round-trips included.
type SessionRegistry struct {
	shards [sessionShards]sessionShard
	guards [guardStripes]sync.Mutex
}

func NewSessionRegistry() *SessionRegistry {
	r := &SessionRegistry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]attendance.Session)
	}
	return r
}

func hashKey(employeeID string, buckets uint32) uint32 {
	h := fnv.New32a()
	h.Write([]byte(employeeID))
	return h.Sum32() % buckets
}

func (r *SessionRegistry) shard(employeeID string) *sessionShard {
	return &r.shards[hashKey(employeeID, sessionShards)]
}

// LockKey acquires the operation guard for one employee and returns the
// release func. Operations for the same employee serialize here; different
// employees proceed in parallel (modulo stripe collisions).
func (r *SessionRegistry) LockKey(employeeID string) func() {
	g := &r.guards[hashKey(employeeID, guardStripes)]
	g.Lock()
	return g.Unlock
}

// Open registers a session for the employee. Fails with
// ErrSessionAlreadyOpen when one exists; callers treat that as the
// idempotent "already checked in" answer, not as a user-facing error.
func (r *SessionRegistry) Open(sess attendance.Session) error {
	s := r.shard(sess.EmployeeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.EmployeeID]; exists {
		return attendance.ErrSessionAlreadyOpen
	}
	s.sessions[sess.EmployeeID] = sess
	return nil
}

// Lookup returns the open session for the employee, if any.
func (r *SessionRegistry) Lookup(employeeID string) (attendance.Session, bool) {
	s := r.shard(employeeID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[employeeID]
	return sess, ok
}

// Close atomically removes and returns the employee's session.
func (r *SessionRegistry) Close(employeeID string) (attendance.Session, bool) {
	s := r.shard(employeeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[employeeID]
	if !ok {
		return attendance.Session{}, false
	}
	delete(s.sessions, employeeID)
	return sess, true
}

// Snapshot copies out every open session. Used by the stale-session
// sweeper; the copy means the sweeper re-checks each session under its
// operation guard before acting on it.
func (r *SessionRegistry) Snapshot() []attendance.Session {
	var out []attendance.Session
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, sess := range s.sessions {
			out = append(out, sess)
		}
		s.mu.RUnlock()
	}
	return out
}
