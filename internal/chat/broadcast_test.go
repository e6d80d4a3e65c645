package chat

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred-sheets/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRegistry(24 * time.Hour)
	b := NewBroadcaster(r, testLogger())

	sender := participantFor("u1", "Ann")
	receiver := participantFor("u2", "Ben")
	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, sender)
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, receiver)

	b.Broadcast(sess, userLeftMessage{Type: "user_left", UserID: "u1"}, "u1")

	assert.Empty(t, sender.Conn.(*fakeConn).frames)

	frames := receiver.Conn.(*fakeConn).frames
	require.Len(t, frames, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(frames[0], &got))
	assert.Equal(t, "user_left", got["type"])
	assert.Equal(t, "u1", got["userId"])
}

func TestBroadcastFailedSendDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry(24 * time.Hour)
	b := NewBroadcaster(r, testLogger())

	dead := participantFor("u2", "Ben")
	dead.Conn.(*fakeConn).ready = false
	alive := participantFor("u3", "Cam")

	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, participantFor("u1", "Ann"))
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, dead)
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, alive)

	b.Broadcast(sess, chatBroadcastMessage{Type: "chat_message", UserName: "Ann", Message: "hi", Timestamp: 1}, "u1")

	assert.Empty(t, dead.Conn.(*fakeConn).frames)
	assert.Len(t, alive.Conn.(*fakeConn).frames, 1)
}

func TestBroadcastSerializesOnce(t *testing.T) {
	r := NewRegistry(24 * time.Hour)
	b := NewBroadcaster(r, testLogger())

	a := participantFor("u1", "Ann")
	c := participantFor("u2", "Ben")
	sess, _ := r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, a)
	r.Join(JoinTarget{Type: SessionCoterie, ID: "c1"}, c)

	b.Broadcast(sess, userJoinedMessage{Type: "user_joined", UserID: "u3", UserName: "Cam"}, "")

	require.Len(t, a.Conn.(*fakeConn).frames, 1)
	require.Len(t, c.Conn.(*fakeConn).frames, 1)
	assert.Equal(t, a.Conn.(*fakeConn).frames[0], c.Conn.(*fakeConn).frames[0])
}
