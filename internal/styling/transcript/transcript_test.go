package transcript

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n int64 }

func (s *seqIDs) Next() int64 { return atomic.AddInt64(&s.n, 1) }

func TestTranscript_AppendOrder(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := New(&seqIDs{}).WithClock(func() time.Time { return fixed })

	first := tr.Append(RoleUser, KindMessage, "I have to go to a wedding")
	tr.Append(RoleSystem, KindConfirmation, "A wedding look, great choice.")
	tr.Append(RoleSystem, KindQuestion, "What will the weather be like?")

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, fixed, first.Timestamp)

	turns := tr.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, []Kind{KindMessage, KindConfirmation, KindQuestion},
		[]Kind{turns[0].Kind, turns[1].Kind, turns[2].Kind})
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, 3, tr.Len())
}

func TestTranscript_TurnsIsACopy(t *testing.T) {
	tr := New(&seqIDs{})
	tr.Append(RoleUser, KindMessage, "hello")

	turns := tr.Turns()
	turns[0].Content = "edited"

	assert.Equal(t, "hello", tr.Turns()[0].Content)
}

func TestTranscript_Since(t *testing.T) {
	tr := New(&seqIDs{})
	for _, c := range []string{"a", "b", "c"} {
		tr.Append(RoleUser, KindMessage, c)
	}

	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{"a", "b", "c"}},
		{1, []string{"b", "c"}},
		{3, nil},
		{9, nil},
		{-1, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		var got []string
		for _, turn := range tr.Since(tt.n) {
			got = append(got, turn.Content)
		}
		assert.Equal(t, tt.want, got, "since %d", tt.n)
	}
}

func TestTranscript_ConcurrentAppendKeepsIDsIncreasing(t *testing.T) {
	tr := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Append(RoleSystem, KindNotice, "x")
			}
		}()
	}
	wg.Wait()

	turns := tr.Turns()
	require.Len(t, turns, 400)
	for i := 1; i < len(turns); i++ {
		assert.Greater(t, turns[i].ID, turns[i-1].ID)
	}
}
