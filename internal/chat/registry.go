package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns all live session state: temporary sessions keyed by
// session id, coterie sessions keyed by coterie id. Every read-modify-write
// runs under one lock; contention is low since all operations are
// in-memory map work.
type Registry struct {
	mu        sync.Mutex
	temporary map[string]*Session
	coterie   map[string]*Session
	expiry    time.Duration
}

// NewRegistry creates a registry with the given temporary-session idle expiry
func NewRegistry(expiry time.Duration) *Registry {
	return &Registry{
		temporary: make(map[string]*Session),
		coterie:   make(map[string]*Session),
		expiry:    expiry,
	}
}

// JoinTarget identifies the session a join should land in. An empty ID with
// type temporary means "create a fresh session".
type JoinTarget struct {
	Type SessionType
	ID   string
}

// Join resolves or creates the target session, registers the participant,
// and returns the session with a roster snapshot for the joiner's reply.
// Authorization for coterie targets must have completed before this call;
// Join itself never fails.
func (r *Registry) Join(target JoinTarget, p *Participant) (*Session, []ParticipantInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sess *Session
	switch target.Type {
	case SessionCoterie:
		sess = r.coterie[target.ID]
		if sess == nil {
			sess = newSession(target.ID, SessionCoterie, target.ID)
			r.coterie[target.ID] = sess
		}
	default:
		id := target.ID
		if id == "" {
			id = uuid.New().String()
		}
		sess = r.temporary[id]
		if sess == nil {
			sess = newSession(id, SessionTemporary, "")
			r.temporary[id] = sess
		}
	}

	sess.addParticipant(p)
	sess.touch()
	return sess, sess.roster()
}

// Leave removes the participant from the session. When the roster drains to
// zero the session is deleted from its map in the same step, temporary and
// coterie alike; the next join recreates it.
func (r *Registry) Leave(sess *Session, userID string) (removed bool, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !sess.removeParticipant(userID) {
		return false, false
	}
	if sess.size() == 0 {
		r.delete(sess)
		return true, true
	}
	sess.touch()
	return true, false
}

// Participant looks up the caller's entry in the session, guarding against
// stale session references after a sweep removed the session.
func (r *Registry) Participant(sess *Session, userID string) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.contains(sess) {
		return nil, false
	}
	return sess.participant(userID)
}

// BroadcastTargets returns the ready connections of every participant
// except the excluded user, and marks the session active.
func (r *Registry) BroadcastTargets(sess *Session, excludeUserID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess.touch()
	conns := make([]Conn, 0, len(sess.participants))
	for id, p := range sess.participants {
		if id == excludeUserID {
			continue
		}
		if p.Conn != nil && p.Conn.Ready() {
			conns = append(conns, p.Conn)
		}
	}
	return conns
}

// SweepExpired deletes temporary sessions idle past the expiry threshold.
// Coterie sessions are never time-expired: they represent a standing group
// and only drain by participant count.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.temporary {
		if now.Sub(sess.LastActivity) > r.expiry {
			delete(r.temporary, id)
			removed++
		}
	}
	return removed
}

// Counts returns the number of live sessions per type
func (r *Registry) Counts() (temporary int, coterie int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.temporary), len(r.coterie)
}

// Lookup returns the registered session for an id, for tests and listings
func (r *Registry) Lookup(typ SessionType, id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sess *Session
	if typ == SessionCoterie {
		sess = r.coterie[id]
	} else {
		sess = r.temporary[id]
	}
	return sess, sess != nil
}

// Roster returns a join-ordered snapshot of a session's participants
func (r *Registry) Roster(sess *Session) []ParticipantInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sess.roster()
}

func (r *Registry) contains(sess *Session) bool {
	if sess.Type == SessionCoterie {
		return r.coterie[sess.ID] == sess
	}
	return r.temporary[sess.ID] == sess
}

func (r *Registry) delete(sess *Session) {
	if sess.Type == SessionCoterie {
		delete(r.coterie, sess.ID)
	} else {
		delete(r.temporary, sess.ID)
	}
}
