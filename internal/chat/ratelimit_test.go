package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsUpToMax(t *testing.T) {
	l := NewLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		allowed, remaining := l.Check("u1", CategoryMessage)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining := l.Check("u1", CategoryMessage)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestLimiterDeniedCallsDoNotConsumeBudget(t *testing.T) {
	base := time.Now()
	l := NewLimiter(time.Minute, 2)
	l.now = func() time.Time { return base }

	l.Check("u1", CategoryMessage)
	l.Check("u1", CategoryMessage)

	// hammer past the limit; none of these should extend the window
	for i := 0; i < 10; i++ {
		allowed, _ := l.Check("u1", CategoryMessage)
		assert.False(t, allowed)
	}

	base = base.Add(61 * time.Second)
	allowed, remaining := l.Check("u1", CategoryMessage)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func TestLimiterCategoriesAreIndependent(t *testing.T) {
	l := NewLimiter(time.Minute, 1)

	allowed, _ := l.Check("u1", CategoryMessage)
	assert.True(t, allowed)
	allowed, _ = l.Check("u1", CategoryMessage)
	assert.False(t, allowed)

	allowed, _ = l.Check("u1", CategoryDiceRoll)
	assert.True(t, allowed)
}

func TestLimiterUsersAreIndependent(t *testing.T) {
	l := NewLimiter(time.Minute, 1)

	l.Check("u1", CategoryMessage)
	allowed, _ := l.Check("u2", CategoryMessage)
	assert.True(t, allowed)
}

func TestLimiterWindowReset(t *testing.T) {
	base := time.Now()
	l := NewLimiter(time.Minute, 1)
	l.now = func() time.Time { return base }

	allowed, _ := l.Check("u1", CategoryMessage)
	assert.True(t, allowed)
	allowed, _ = l.Check("u1", CategoryMessage)
	assert.False(t, allowed)

	// one second short of the boundary, still denied
	base = base.Add(59 * time.Second)
	allowed, _ = l.Check("u1", CategoryMessage)
	assert.False(t, allowed)

	base = base.Add(2 * time.Second)
	allowed, _ = l.Check("u1", CategoryMessage)
	assert.True(t, allowed)
}

func TestLimiterSweep(t *testing.T) {
	base := time.Now()
	l := NewLimiter(time.Minute, 5)
	l.now = func() time.Time { return base }

	l.Check("u1", CategoryMessage)
	l.Check("u2", CategoryDiceRoll)
	assert.Len(t, l.entries, 2)

	assert.Equal(t, 0, l.Sweep(base.Add(30*time.Second)))
	assert.Len(t, l.entries, 2)

	assert.Equal(t, 2, l.Sweep(base.Add(2*time.Minute)))
	assert.Len(t, l.entries, 0)
}
