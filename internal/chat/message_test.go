package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "kindred-sheets/backend/pkg/errors"
)

func TestDecodeJoinSession(t *testing.T) {
	msg, verr := Decode([]byte(`{"type":"join_session","sessionId":"abc-123","characterName":"Lucien"}`))
	require.Nil(t, verr)

	join, ok := msg.(*JoinSession)
	require.True(t, ok)
	assert.Equal(t, "abc-123", join.SessionID)
	assert.Equal(t, "Lucien", join.CharacterName)
	assert.Empty(t, join.GroupID)
}

func TestDecodeRejectsInvalidIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"sessionId with spaces", `{"type":"join_session","sessionId":"has spaces"}`},
		{"sessionId with path chars", `{"type":"join_session","sessionId":"../etc"}`},
		{"groupId with unicode", `{"type":"join_session","groupId":"grüppe"}`},
		{"sessionId too long", fmt.Sprintf(`{"type":"join_session","sessionId":"%s"}`, strings.Repeat("a", 101))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verr := Decode([]byte(tt.frame))
			require.NotNil(t, verr)
			assert.Equal(t, pkgerrors.CodeInvalidStructure, verr.Code)
		})
	}
}

func TestDecodeAcceptsValidIdentifierCharset(t *testing.T) {
	msg, verr := Decode([]byte(`{"type":"join_session","groupId":"Coterie_42-night"}`))
	require.Nil(t, verr)
	assert.Equal(t, "Coterie_42-night", msg.(*JoinSession).GroupID)
}

func TestDecodeChatMessage(t *testing.T) {
	msg, verr := Decode([]byte(`{"type":"chat_message","message":"The Prince requests an audience."}`))
	require.Nil(t, verr)
	assert.Equal(t, "The Prince requests an audience.", msg.(*ChatText).Message)
}

func TestDecodeChatMessageLimits(t *testing.T) {
	_, verr := Decode([]byte(`{"type":"chat_message","message":""}`))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeInvalidStructure, verr.Code)

	// exactly at the cap is fine
	atCap := fmt.Sprintf(`{"type":"chat_message","message":"%s"}`, strings.Repeat("a", MaxMessageChars))
	_, verr = Decode([]byte(atCap))
	assert.Nil(t, verr)

	overCap := fmt.Sprintf(`{"type":"chat_message","message":"%s"}`, strings.Repeat("a", MaxMessageChars+1))
	_, verr = Decode([]byte(overCap))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeInvalidStructure, verr.Code)
}

func TestDecodeChatMessageCountsRunesNotBytes(t *testing.T) {
	// 5000 three-byte runes is 15000 bytes but still within the char cap
	frame := fmt.Sprintf(`{"type":"chat_message","message":"%s"}`, strings.Repeat("語", MaxMessageChars))
	_, verr := Decode([]byte(frame))
	assert.Nil(t, verr)
}

func TestDecodeSizeLimits(t *testing.T) {
	overParse := fmt.Sprintf(`{"type":"chat_message","message":"%s"}`, strings.Repeat("a", MaxParseBytes))
	_, verr := Decode([]byte(overParse))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeMalformedPayload, verr.Code)
	assert.Contains(t, verr.Message, "parseable")

	overFrame := make([]byte, MaxFrameBytes+1)
	_, verr = Decode(overFrame)
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeMalformedPayload, verr.Code)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, verr := Decode([]byte(`{"type":"chat_message",`))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeMalformedPayload, verr.Code)
}

func TestDecodeMissingAndUnknownType(t *testing.T) {
	_, verr := Decode([]byte(`{"message":"hi"}`))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeInvalidStructure, verr.Code)

	_, verr = Decode([]byte(`{"type":"summon_wyrm"}`))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeUnknownType, verr.Code)
	assert.Contains(t, verr.Message, "summon_wyrm")
}

func TestDecodeDiceRoll(t *testing.T) {
	frame := `{"type":"dice_roll","rollData":{"dice":[{"id":1,"value":10,"isSpecial":false},{"id":2,"value":6,"isSpecial":true}],"totalSuccesses":2,"results":[{"type":"success","value":2}],"rollId":"roll-1"}}`
	msg, verr := Decode([]byte(frame))
	require.Nil(t, verr)

	roll := msg.(*DiceRoll)
	assert.Len(t, roll.RollData.Dice, 2)
	assert.Equal(t, 2, roll.RollData.TotalSuccesses)
	assert.Equal(t, "roll-1", roll.RollData.RollID)
}

func TestDecodeDiceRollLimits(t *testing.T) {
	_, verr := Decode([]byte(`{"type":"dice_roll","rollData":{"dice":[]}}`))
	require.NotNil(t, verr)
	assert.Equal(t, pkgerrors.CodeInvalidStructure, verr.Code)

	var dice []string
	for i := 0; i <= maxDiceEntries; i++ {
		dice = append(dice, fmt.Sprintf(`{"id":%d,"value":5}`, i))
	}
	frame := fmt.Sprintf(`{"type":"dice_roll","rollData":{"dice":[%s]}}`, strings.Join(dice, ","))
	_, verr = Decode([]byte(frame))
	require.NotNil(t, verr)
	assert.Contains(t, verr.Message, "dice")

	var results []string
	for i := 0; i <= maxResultEntries; i++ {
		results = append(results, `{"type":"success","value":1}`)
	}
	frame = fmt.Sprintf(`{"type":"dice_roll","rollData":{"dice":[{"id":1,"value":5}],"results":[%s]}}`, strings.Join(results, ","))
	_, verr = Decode([]byte(frame))
	require.NotNil(t, verr)
	assert.Contains(t, verr.Message, "results")
}

func TestDecodeRouseCheck(t *testing.T) {
	msg, verr := Decode([]byte(`{"type":"rouse_check","roll":7,"success":true,"newHunger":3}`))
	require.Nil(t, verr)

	rouse := msg.(*RouseCheck)
	assert.Equal(t, 7, rouse.Roll)
	assert.True(t, rouse.Success)
	assert.Equal(t, 3, rouse.NewHunger)
}

func TestDecodeRouseCheckRanges(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"roll zero", `{"type":"rouse_check","roll":0,"newHunger":2}`},
		{"roll eleven", `{"type":"rouse_check","roll":11,"newHunger":2}`},
		{"hunger negative", `{"type":"rouse_check","roll":5,"newHunger":-1}`},
		{"hunger six", `{"type":"rouse_check","roll":5,"newHunger":6}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verr := Decode([]byte(tt.frame))
			require.NotNil(t, verr)
			assert.Equal(t, pkgerrors.CodeInvalidStructure, verr.Code)
		})
	}
}

func TestDecodeRemorseCheckPresenceOnly(t *testing.T) {
	// Values are client-computed; the server only requires that every field
	// is present, whatever its shape.
	frame := `{"type":"remorse_check","rolls":[3,8],"successes":1,"passed":true,"newHumanity":6}`
	msg, verr := Decode([]byte(frame))
	require.Nil(t, verr)

	remorse := msg.(*RemorseCheck)
	assert.NotEmpty(t, remorse.Rolls)
	assert.NotEmpty(t, remorse.NewHumanity)

	_, verr = Decode([]byte(`{"type":"remorse_check","rolls":[3],"successes":1,"passed":true}`))
	require.NotNil(t, verr)
	assert.Contains(t, verr.Message, "newHumanity")
}

func TestDecodeLeaveSession(t *testing.T) {
	msg, verr := Decode([]byte(`{"type":"leave_session"}`))
	require.Nil(t, verr)
	assert.IsType(t, &LeaveSession{}, msg)
}

func TestSanitizeMessage(t *testing.T) {
	assert.Equal(t, "hello", sanitizeMessage("  hello \n"))

	long := strings.Repeat("b", 6000)
	got := sanitizeMessage(long)
	assert.Equal(t, MaxMessageChars, len([]rune(got)))

	multibyte := strings.Repeat("夜", 6000)
	got = sanitizeMessage(multibyte)
	assert.Equal(t, MaxMessageChars, len([]rune(got)))
}
