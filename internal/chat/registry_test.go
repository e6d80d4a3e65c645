package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records delivered frames for assertions
type fakeConn struct {
	frames [][]byte
	ready  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{ready: true}
}

func (f *fakeConn) Send(data []byte) bool {
	if !f.ready {
		return false
	}
	f.frames = append(f.frames, data)
	return true
}

func (f *fakeConn) Ready() bool { return f.ready }

func (f *fakeConn) Close(code int, reason string) { f.ready = false }

func participantFor(userID, userName string) *Participant {
	return &Participant{UserID: userID, UserName: userName, Conn: newFakeConn()}
}

func TestRegistryJoinCreatesTemporarySession(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, roster := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u1", "Ann"))
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, SessionTemporary, sess.Type)
	require.Len(t, roster, 1)
	assert.Equal(t, "u1", roster[0].UserID)

	temporary, coterie := r.Counts()
	assert.Equal(t, 1, temporary)
	assert.Equal(t, 0, coterie)
}

func TestRegistryJoinExistingTemporarySession(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	first, _ := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u1", "Ann"))
	second, roster := r.Join(JoinTarget{Type: SessionTemporary, ID: first.ID}, participantFor("u2", "Ben"))

	assert.Same(t, first, second)
	require.Len(t, roster, 2)
	assert.Equal(t, "u1", roster[0].UserID)
	assert.Equal(t, "u2", roster[1].UserID)
}

func TestRegistryCoterieSessionIDIsCoterieID(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "coterie-7"}, participantFor("u1", "Ann"))
	assert.Equal(t, "coterie-7", sess.ID)
	assert.Equal(t, "coterie-7", sess.GroupID)
	assert.Equal(t, SessionCoterie, sess.Type)

	again, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "coterie-7"}, participantFor("u2", "Ben"))
	assert.Same(t, sess, again)
}

func TestRegistryRejoinReplacesWithoutDuplicating(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u1", "Ann"))
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u2", "Ben"))

	fresh := &Participant{UserID: "u1", UserName: "Ann", CharacterName: "Lucien", Conn: newFakeConn()}
	_, roster := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, fresh)

	require.Len(t, roster, 2)
	// rejoin keeps the original roster position
	assert.Equal(t, "u1", roster[0].UserID)
	assert.Equal(t, "Lucien", roster[0].CharacterName)

	p, ok := r.Participant(sess, "u1")
	require.True(t, ok)
	assert.Same(t, fresh, p)
}

func TestRegistryLeaveRemovesEmptySession(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u1", "Ann"))
	r.Join(JoinTarget{Type: SessionTemporary, ID: sess.ID}, participantFor("u2", "Ben"))

	removed, empty := r.Leave(sess, "u1")
	assert.True(t, removed)
	assert.False(t, empty)

	removed, empty = r.Leave(sess, "u2")
	assert.True(t, removed)
	assert.True(t, empty)

	temporary, _ := r.Counts()
	assert.Equal(t, 0, temporary)

	_, found := r.Lookup(SessionTemporary, sess.ID)
	assert.False(t, found)
}

func TestRegistryLeaveUnknownUser(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u1", "Ann"))
	removed, empty := r.Leave(sess, "stranger")
	assert.False(t, removed)
	assert.False(t, empty)
}

func TestRegistryParticipantStaleSession(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u1", "Ann"))
	r.Leave(sess, "u1")

	// session object is still referenced by the caller but no longer registered
	_, ok := r.Participant(sess, "u1")
	assert.False(t, ok)
}

func TestRegistryBroadcastTargetsExcludeAndSkipUnready(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sender := participantFor("u1", "Ann")
	receiver := participantFor("u2", "Ben")
	gone := participantFor("u3", "Cam")
	gone.Conn.(*fakeConn).ready = false

	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, sender)
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, receiver)
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, gone)

	targets := r.BroadcastTargets(sess, "u1")
	require.Len(t, targets, 1)
	assert.Same(t, receiver.Conn, targets[0])
}

func TestRegistrySweepExpiredRemovesOnlyIdleTemporary(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	stale, _ := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u1", "Ann"))
	fresh, _ := r.Join(JoinTarget{Type: SessionTemporary}, participantFor("u2", "Ben"))
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u3", "Cam"))

	stale.LastActivity = time.Now().Add(-25 * time.Hour)
	fresh.LastActivity = time.Now().Add(-1 * time.Hour)

	removed := r.SweepExpired(time.Now())
	assert.Equal(t, 1, removed)

	temporary, coterie := r.Counts()
	assert.Equal(t, 1, temporary)
	assert.Equal(t, 1, coterie)

	_, found := r.Lookup(SessionTemporary, stale.ID)
	assert.False(t, found)
	_, found = r.Lookup(SessionTemporary, fresh.ID)
	assert.True(t, found)
}

func TestRegistrySweepIgnoresIdleCoterieSessions(t *testing.T) {
	r := NewRegistry(time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u1", "Ann"))
	sess.LastActivity = time.Now().Add(-48 * time.Hour)

	assert.Equal(t, 0, r.SweepExpired(time.Now()))
	_, found := r.Lookup(SessionCoterie, "c1")
	assert.True(t, found)
}

func TestRegistryRoster(t *testing.T) {
	r := NewRegistry(24 * time.Hour)

	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u1", "Ann"))
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u2", "Ben"))

	roster := r.Roster(sess)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ann", roster[0].UserName)
	assert.Equal(t, "Ben", roster[1].UserName)
}
