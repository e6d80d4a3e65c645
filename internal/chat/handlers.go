package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "kindred-sheets/backend/pkg/errors"
)

const authorizeTimeout = 5 * time.Second

// handleFrame decodes one inbound frame and dispatches it to the matching
// handler. Handlers run to completion on the caller's read loop, so all
// registry mutations for one message finish before the next frame of the
// same connection is processed.
func (s *Server) handleFrame(c *Client, data []byte) {
	msg, verr := Decode(data)
	if verr != nil {
		s.reject(c, verr.Code, verr.Message)
		return
	}

	switch m := msg.(type) {
	case *JoinSession:
		s.handleJoin(c, m)
	case *LeaveSession:
		s.handleLeave(c)
	case *ChatText:
		s.handleChat(c, m)
	case *DiceRoll:
		s.handleDiceRoll(c, m)
	case *RouseCheck:
		s.handleRouseCheck(c, m)
	case *RemorseCheck:
		s.handleRemorseCheck(c, m)
	}
}

// handleJoin resolves the target session, authorizing coterie joins before
// any session state is touched. A client already in a session leaves it
// first; a join is never allowed to leave a dangling participant behind.
func (s *Server) handleJoin(c *Client, m *JoinSession) {
	target := JoinTarget{Type: SessionTemporary, ID: m.SessionID}

	if m.GroupID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
		err := s.authorizer.AuthorizeSessionAccess(ctx, m.GroupID, c.UserID)
		cancel()
		switch {
		case errors.Is(err, ErrGroupNotFound):
			s.reject(c, pkgerrors.CodeGroupNotFound, "Coterie not found")
			return
		case errors.Is(err, ErrAccessDenied):
			s.reject(c, pkgerrors.CodeAccessDenied, "You do not have access to this coterie")
			return
		case err != nil:
			s.log.Error("Coterie authorization failed",
				"coterie_id", m.GroupID,
				"user_id", c.UserID,
				"error", err.Error(),
			)
			s.reject(c, pkgerrors.CodeAccessDenied, "Unable to verify coterie access")
			return
		}
		target = JoinTarget{Type: SessionCoterie, ID: m.GroupID}
	}

	if c.session != nil {
		s.performLeave(c)
	}

	participant := &Participant{
		UserID:        c.UserID,
		UserName:      c.UserName,
		CharacterName: m.CharacterName,
		Conn:          c,
	}

	sess, roster := s.registry.Join(target, participant)
	c.session = sess

	s.send(c, sessionJoinedMessage{
		Type:         "session_joined",
		SessionID:    sess.ID,
		SessionType:  sess.Type,
		Participants: roster,
	})
	s.broadcast.Broadcast(sess, userJoinedMessage{
		Type:          "user_joined",
		UserID:        c.UserID,
		UserName:      c.UserName,
		CharacterName: m.CharacterName,
	}, c.UserID)

	messagesTotal.WithLabelValues(string(TypeJoinSession)).Inc()
	s.updateSessionGauges()
	s.analytics.Record("session_joined", map[string]any{
		"user_id":      c.UserID,
		"session_id":   sess.ID,
		"session_type": string(sess.Type),
	})
	s.log.Info("Participant joined session",
		"user_id", c.UserID,
		"session_id", sess.ID,
		"session_type", string(sess.Type),
	)
}

// handleLeave processes an explicit leave; disconnects funnel through the
// same path.
func (s *Server) handleLeave(c *Client) {
	if c.session == nil {
		s.reject(c, pkgerrors.CodeNotInSession, "You are not in a session")
		return
	}
	s.performLeave(c)
	messagesTotal.WithLabelValues(string(TypeLeaveSession)).Inc()
}

// performLeave removes the client from its current session and broadcasts
// user_left to whoever remains. An emptied session is already gone from
// the registry by the time the broadcast would run.
func (s *Server) performLeave(c *Client) {
	sess := c.session
	if sess == nil {
		return
	}
	c.session = nil

	removed, empty := s.registry.Leave(sess, c.UserID)
	if removed && !empty {
		s.broadcast.Broadcast(sess, userLeftMessage{
			Type:   "user_left",
			UserID: c.UserID,
		}, c.UserID)
	}

	s.updateSessionGauges()
	s.analytics.Record("session_left", map[string]any{
		"user_id":    c.UserID,
		"session_id": sess.ID,
	})
	s.log.Info("Participant left session",
		"user_id", c.UserID,
		"session_id", sess.ID,
		"session_destroyed", empty,
	)
}

func (s *Server) handleChat(c *Client, m *ChatText) {
	p, ok := s.requireParticipant(c)
	if !ok {
		return
	}
	if !s.allowAction(c, CategoryMessage) {
		return
	}

	out := chatBroadcastMessage{
		Type:          "chat_message",
		UserName:      p.UserName,
		CharacterName: p.CharacterName,
		Message:       sanitizeMessage(m.Message),
		Timestamp:     nowMillis(),
	}
	s.broadcast.Broadcast(c.session, out, c.UserID)
	s.send(c, out)

	messagesTotal.WithLabelValues(string(TypeChatMessage)).Inc()
}

func (s *Server) handleDiceRoll(c *Client, m *DiceRoll) {
	p, ok := s.requireParticipant(c)
	if !ok {
		return
	}
	if !s.allowAction(c, CategoryDiceRoll) {
		return
	}

	out := diceRollBroadcastMessage{
		Type:          "dice_roll",
		UserName:      p.UserName,
		CharacterName: p.CharacterName,
		RollData:      m.RollData,
		Timestamp:     nowMillis(),
	}
	s.broadcast.Broadcast(c.session, out, c.UserID)
	s.send(c, out)

	messagesTotal.WithLabelValues(string(TypeDiceRoll)).Inc()
	s.analytics.Record("dice_roll", map[string]any{
		"user_id":    c.UserID,
		"session_id": c.session.ID,
		"dice":       len(m.RollData.Dice),
		"successes":  m.RollData.TotalSuccesses,
	})
}

// Rouse and remorse checks are deliberately not rate limited: they occur
// far less often than chat or pool rolls.

func (s *Server) handleRouseCheck(c *Client, m *RouseCheck) {
	p, ok := s.requireParticipant(c)
	if !ok {
		return
	}

	out := rouseCheckBroadcastMessage{
		Type:          "rouse_check",
		UserName:      p.UserName,
		CharacterName: p.CharacterName,
		Roll:          m.Roll,
		Success:       m.Success,
		NewHunger:     m.NewHunger,
		Timestamp:     nowMillis(),
	}
	s.broadcast.Broadcast(c.session, out, c.UserID)
	s.send(c, out)

	messagesTotal.WithLabelValues(string(TypeRouseCheck)).Inc()
}

func (s *Server) handleRemorseCheck(c *Client, m *RemorseCheck) {
	p, ok := s.requireParticipant(c)
	if !ok {
		return
	}

	characterName := p.CharacterName
	if m.CharacterName != "" {
		characterName = m.CharacterName
	}

	out := remorseCheckBroadcastMessage{
		Type:          "remorse_check",
		UserName:      p.UserName,
		CharacterName: characterName,
		Rolls:         m.Rolls,
		Successes:     m.Successes,
		Passed:        m.Passed,
		NewHumanity:   m.NewHumanity,
		Timestamp:     nowMillis(),
	}
	s.broadcast.Broadcast(c.session, out, c.UserID)
	s.send(c, out)

	messagesTotal.WithLabelValues(string(TypeRemorseCheck)).Inc()
}

// requireParticipant verifies the caller is in a session and still present
// in the registry's copy of it. A stale session reference (removed by a
// sweep) is cleared so subsequent actions report "not in a session".
func (s *Server) requireParticipant(c *Client) (*Participant, bool) {
	if c.session == nil {
		s.reject(c, pkgerrors.CodeNotInSession, "You are not in a session")
		return nil, false
	}
	p, ok := s.registry.Participant(c.session, c.UserID)
	if !ok {
		c.session = nil
		s.reject(c, pkgerrors.CodeNotAParticipant, "You are not a participant of this session")
		return nil, false
	}
	return p, true
}

// allowAction consults the rate limiter; on denial the caller is notified
// directly and an audit event is emitted, neither blocking the other.
func (s *Server) allowAction(c *Client, category Category) bool {
	allowed, _ := s.limiter.Check(c.UserID, category)
	if allowed {
		return true
	}

	rateLimitDenials.WithLabelValues(string(category)).Inc()
	s.send(c, newErrorMessage("Rate limit exceeded. Please slow down."))
	s.analytics.Record("rate_limit_exceeded", map[string]any{
		"user_id":  c.UserID,
		"category": string(category),
	})
	s.log.Warn("Rate limit exceeded",
		"user_id", c.UserID,
		"category", string(category),
	)
	return false
}

// reject sends an error frame to the offending connection and emits an
// audit event. Audit failures never affect the reply path; the recorder is
// fire-and-forget by contract.
func (s *Server) reject(c *Client, code string, message string) {
	s.send(c, newErrorMessage(message))
	errorsTotal.WithLabelValues(code).Inc()
	s.analytics.Record("chat_error", map[string]any{
		"user_id": c.UserID,
		"code":    code,
		"message": message,
	})
	s.log.Debug("Rejected chat message",
		"user_id", c.UserID,
		"code", code,
		"message", message,
	)
}

func (s *Server) send(c *Client, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		s.log.Error("Failed to serialize reply", "user_id", c.UserID, "error", err.Error())
		return
	}
	if !c.Send(data) {
		s.log.Debug("Dropped reply for unready connection", "user_id", c.UserID)
	}
}
