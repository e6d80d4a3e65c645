package chat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"kindred-sheets/backend/pkg/errors"
)

// ClientMessageType discriminates inbound message variants
type ClientMessageType string

const (
	TypeJoinSession  ClientMessageType = "join_session"
	TypeLeaveSession ClientMessageType = "leave_session"
	TypeChatMessage  ClientMessageType = "chat_message"
	TypeDiceRoll     ClientMessageType = "dice_roll"
	TypeRouseCheck   ClientMessageType = "rouse_check"
	TypeRemorseCheck ClientMessageType = "remorse_check"
)

// Frame and field limits
const (
	// MaxFrameBytes is the hard cap on a raw inbound frame
	MaxFrameBytes = 100 << 10
	// MaxParseBytes caps what the parse step will accept. Independent of
	// MaxFrameBytes so the codec stays safe when called directly.
	MaxParseBytes = 50 << 10
	// MaxMessageChars bounds chat text in characters, not bytes
	MaxMessageChars = 5000

	maxIdentifierLen = 100
	maxDiceEntries   = 100
	maxResultEntries = 200
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ClientMessage is the closed set of participant-to-server messages.
// Dispatch switches over these types exhaustively.
type ClientMessage interface {
	clientMessage()
}

// JoinSession requests entry into a session. With no identifiers a fresh
// temporary session is created; a groupId targets a coterie session.
type JoinSession struct {
	SessionID     string `json:"sessionId,omitempty"`
	GroupID       string `json:"groupId,omitempty"`
	CharacterName string `json:"characterName,omitempty"`
}

// LeaveSession requests departure from the current session
type LeaveSession struct{}

// ChatText carries a chat message
type ChatText struct {
	Message string `json:"message"`
}

// Die is one die in a roll
type Die struct {
	ID        int  `json:"id"`
	Value     int  `json:"value"`
	IsSpecial bool `json:"isSpecial"`
}

// RollResult is one interpreted result entry of a roll
type RollResult struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// RollData is the full payload of a dice roll
type RollData struct {
	Dice           []Die           `json:"dice"`
	TotalSuccesses int             `json:"totalSuccesses"`
	Results        []RollResult    `json:"results"`
	PoolInfo       json.RawMessage `json:"poolInfo,omitempty"`
	RollID         string          `json:"rollId,omitempty"`
	IsReroll       bool            `json:"isReroll,omitempty"`
}

// DiceRoll carries a dice roll to broadcast
type DiceRoll struct {
	RollData RollData `json:"rollData"`
}

// RouseCheck carries a rouse check outcome
type RouseCheck struct {
	Roll      int  `json:"roll"`
	Success   bool `json:"success"`
	NewHunger int  `json:"newHunger"`
}

// RemorseCheck carries a remorse check outcome. Its game values are
// computed and range-checked by the client rules engine; the server
// validates presence only and echoes them as received.
type RemorseCheck struct {
	CharacterName string          `json:"characterName,omitempty"`
	Rolls         json.RawMessage `json:"rolls"`
	Successes     json.RawMessage `json:"successes"`
	Passed        json.RawMessage `json:"passed"`
	NewHumanity   json.RawMessage `json:"newHumanity"`
}

func (*JoinSession) clientMessage()  {}
func (*LeaveSession) clientMessage() {}
func (*ChatText) clientMessage()     {}
func (*DiceRoll) clientMessage()     {}
func (*RouseCheck) clientMessage()   {}
func (*RemorseCheck) clientMessage() {}

// ValidationError describes why a frame was rejected
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func malformed(format string, args ...any) *ValidationError {
	return &ValidationError{Code: errors.CodeMalformedPayload, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Code: errors.CodeInvalidStructure, Message: fmt.Sprintf(format, args...)}
}

// Decode parses and validates a raw frame into a typed client message.
// Size checks run before any parsing.
func Decode(data []byte) (ClientMessage, *ValidationError) {
	if len(data) > MaxFrameBytes {
		return nil, malformed("message exceeds maximum size of %d bytes", MaxFrameBytes)
	}
	if len(data) > MaxParseBytes {
		return nil, malformed("payload exceeds maximum parseable size of %d bytes", MaxParseBytes)
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, malformed("invalid message format")
	}

	switch ClientMessageType(envelope.Type) {
	case TypeJoinSession:
		var m JoinSession
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, malformed("invalid message format")
		}
		return &m, m.validate()
	case TypeLeaveSession:
		return &LeaveSession{}, nil
	case TypeChatMessage:
		var m ChatText
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, malformed("invalid message format")
		}
		return &m, m.validate()
	case TypeDiceRoll:
		var m DiceRoll
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, malformed("invalid message format")
		}
		return &m, m.validate()
	case TypeRouseCheck:
		var m RouseCheck
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, malformed("invalid message format")
		}
		return &m, m.validate()
	case TypeRemorseCheck:
		var m RemorseCheck
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, malformed("invalid message format")
		}
		return &m, m.validate()
	case "":
		return nil, invalid("missing message type")
	default:
		return nil, &ValidationError{
			Code:    errors.CodeUnknownType,
			Message: fmt.Sprintf("unknown message type: %s", envelope.Type),
		}
	}
}

func (m *JoinSession) validate() *ValidationError {
	if err := validateIdentifier("sessionId", m.SessionID); err != nil {
		return err
	}
	if err := validateIdentifier("groupId", m.GroupID); err != nil {
		return err
	}
	if utf8.RuneCountInString(m.CharacterName) > maxIdentifierLen {
		return invalid("characterName exceeds %d characters", maxIdentifierLen)
	}
	return nil
}

func (m *ChatText) validate() *ValidationError {
	n := utf8.RuneCountInString(m.Message)
	if n == 0 {
		return invalid("message must not be empty")
	}
	if n > MaxMessageChars {
		return invalid("message exceeds %d characters", MaxMessageChars)
	}
	return nil
}

func (m *DiceRoll) validate() *ValidationError {
	if len(m.RollData.Dice) == 0 {
		return invalid("rollData.dice must not be empty")
	}
	if len(m.RollData.Dice) > maxDiceEntries {
		return invalid("rollData.dice exceeds %d entries", maxDiceEntries)
	}
	if len(m.RollData.Results) > maxResultEntries {
		return invalid("rollData.results exceeds %d entries", maxResultEntries)
	}
	if len(m.RollData.RollID) > maxIdentifierLen {
		return invalid("rollData.rollId exceeds %d characters", maxIdentifierLen)
	}
	return nil
}

func (m *RouseCheck) validate() *ValidationError {
	if m.Roll < 1 || m.Roll > 10 {
		return invalid("roll must be between 1 and 10")
	}
	if m.NewHunger < 0 || m.NewHunger > 5 {
		return invalid("newHunger must be between 0 and 5")
	}
	return nil
}

func (m *RemorseCheck) validate() *ValidationError {
	if len(m.Rolls) == 0 {
		return invalid("rolls is required")
	}
	if len(m.Successes) == 0 {
		return invalid("successes is required")
	}
	if len(m.Passed) == 0 {
		return invalid("passed is required")
	}
	if len(m.NewHumanity) == 0 {
		return invalid("newHumanity is required")
	}
	return nil
}

func validateIdentifier(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	if len(value) > maxIdentifierLen {
		return invalid("%s exceeds %d characters", field, maxIdentifierLen)
	}
	if !identifierPattern.MatchString(value) {
		return invalid("%s contains invalid characters", field)
	}
	return nil
}

// sanitizeMessage trims whitespace and truncates to the character cap.
// Runs after schema acceptance as defense in depth.
func sanitizeMessage(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxMessageChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxMessageChars])
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Server-to-participant message shapes

// ParticipantInfo is the roster entry shape on the wire
type ParticipantInfo struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	CharacterName string `json:"characterName,omitempty"`
}

type sessionJoinedMessage struct {
	Type         string            `json:"type"`
	SessionID    string            `json:"sessionId"`
	SessionType  SessionType       `json:"sessionType"`
	Participants []ParticipantInfo `json:"participants"`
}

type userJoinedMessage struct {
	Type          string `json:"type"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	CharacterName string `json:"characterName,omitempty"`
}

type userLeftMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type chatBroadcastMessage struct {
	Type          string `json:"type"`
	UserName      string `json:"userName"`
	CharacterName string `json:"characterName,omitempty"`
	Message       string `json:"message"`
	Timestamp     int64  `json:"timestamp"`
}

type diceRollBroadcastMessage struct {
	Type          string   `json:"type"`
	UserName      string   `json:"userName"`
	CharacterName string   `json:"characterName,omitempty"`
	RollData      RollData `json:"rollData"`
	Timestamp     int64    `json:"timestamp"`
}

type rouseCheckBroadcastMessage struct {
	Type          string `json:"type"`
	UserName      string `json:"userName"`
	CharacterName string `json:"characterName,omitempty"`
	Roll          int    `json:"roll"`
	Success       bool   `json:"success"`
	NewHunger     int    `json:"newHunger"`
	Timestamp     int64  `json:"timestamp"`
}

type remorseCheckBroadcastMessage struct {
	Type          string          `json:"type"`
	UserName      string          `json:"userName"`
	CharacterName string          `json:"characterName,omitempty"`
	Rolls         json.RawMessage `json:"rolls"`
	Successes     json.RawMessage `json:"successes"`
	Passed        json.RawMessage `json:"passed"`
	NewHumanity   json.RawMessage `json:"newHumanity"`
	Timestamp     int64           `json:"timestamp"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMessage(message string) errorMessage {
	return errorMessage{Type: "error", Message: message}
}
