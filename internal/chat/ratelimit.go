package chat

import (
	"sync"
	"time"
)

// Category names a throttled message class
type Category string

const (
	// CategoryMessage throttles chat text
	CategoryMessage Category = "message"
	// CategoryDiceRoll throttles dice rolls
	CategoryDiceRoll Category = "dice_roll"
)

type limitEntry struct {
	count     int
	resetTime time.Time
}

// Limiter is a fixed-window counter per user and category. Fixed windows
// trade boundary-burst precision for O(1) memory per pair, which is enough
// for a casual chat feature.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*limitEntry
	window  time.Duration
	max     int
	now     func() time.Time
}

// NewLimiter creates a limiter allowing max actions per window
func NewLimiter(window time.Duration, max int) *Limiter {
	return &Limiter{
		entries: make(map[string]*limitEntry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Check records an action attempt and reports whether it is allowed along
// with the remaining budget. Denied attempts do not consume budget and do
// not extend the window.
func (l *Limiter) Check(userID string, category Category) (allowed bool, remaining int) {
	key := userID + ":" + string(category)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[key]
	if !exists || now.After(entry.resetTime) {
		l.entries[key] = &limitEntry{count: 1, resetTime: now.Add(l.window)}
		return true, l.max - 1
	}

	if entry.count >= l.max {
		return false, 0
	}

	entry.count++
	return true, l.max - entry.count
}

// Sweep garbage-collects expired entries to bound memory
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.entries {
		if now.After(entry.resetTime) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
