// Package transcript records the ordered turns of a styling conversation.
package transcript

import (
	"sync"
	"time"

	"styling-assistant/internal/common/idgen"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Kind tells the rendering layer how to present a system turn.
type Kind string

const (
	KindMessage      Kind = "message"
	KindConfirmation Kind = "confirmation"
	KindQuestion     Kind = "question"
	KindGuidance     Kind = "guidance"
	KindOptions      Kind = "options"
	KindNotice       Kind = "notice"
	KindError        Kind = "error"
)

// Turn is immutable once appended.
type Turn struct {
	ID        int64     `json:"id,string"`
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// IDGenerator issues increasing turn ids.
type IDGenerator interface {
	Next() int64
}

// Transcript is an append-only, concurrency-safe turn log. Turns are
// returned in append order.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	ids   IDGenerator
	now   func() time.Time
}

// New returns an empty transcript. A nil ids uses the process-wide snowflake node.
func New(ids IDGenerator) *Transcript {
	if ids == nil {
		ids = idgen.Default()
	}
	return &Transcript{ids: ids, now: time.Now}
}

// WithClock overrides the timestamp source.
func (t *Transcript) WithClock(now func() time.Time) *Transcript {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
	return t
}

// Append records a turn and returns it.
func (t *Transcript) Append(role Role, kind Kind, content string) Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turn := Turn{
		ID:        t.ids.Next(),
		Role:      role,
		Kind:      kind,
		Content:   content,
		Timestamp: t.now().UTC(),
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Turns returns a copy of every turn.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Turn(nil), t.turns...)
}

// Since returns a copy of the turns appended after the first n.
func (t *Transcript) Since(n int) []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(t.turns) {
		return nil
	}
	return append([]Turn(nil), t.turns[n:]...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
