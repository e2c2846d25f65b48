package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/styling/matcher"
	"styling-assistant/internal/styling/recommend"
	"styling-assistant/internal/styling/taxonomy"
	"styling-assistant/internal/styling/transcript"
)

type seqIDs struct {
	mu sync.Mutex
	n  int64
}

func (s *seqIDs) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []recommend.Request
	errs  []error
}

func (f *fakeDispatcher) Send(_ context.Context, sessionID, _ string, req recommend.Request) (recommend.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return recommend.Receipt{}, err
		}
	}
	return recommend.Receipt{ReferenceID: "ref-" + sessionID, Status: "accepted"}, nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	session    *Session
	pacer      *ManualPacer
	dispatcher *fakeDispatcher
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	tax := taxonomy.Builtin()

	f := &fixture{pacer: &ManualPacer{}, dispatcher: &fakeDispatcher{}}
	opts := Options{
		UserID:     "user-1",
		Pacer:      f.pacer,
		Dispatcher: f.dispatcher,
		IDs:        &seqIDs{},
		Logger:     logger.NewTestLogger(t),
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.session = NewSession("conv-1", tax, opts)
	t.Cleanup(f.session.Close)
	return f
}

func (f *fixture) say(t *testing.T, msg string) Outcome {
	t.Helper()
	out, err := f.session.Process(context.Background(), msg)
	require.NoError(t, err)
	return out
}

func (f *fixture) view(t *testing.T) View {
	t.Helper()
	v, err := f.session.Snapshot()
	require.NoError(t, err)
	return v
}

func (f *fixture) lastTurn(t *testing.T) transcript.Turn {
	t.Helper()
	turns, err := f.session.Transcript()
	require.NoError(t, err)
	require.NotEmpty(t, turns)
	return turns[len(turns)-1]
}

func kinds(turns []transcript.Turn) []transcript.Kind {
	out := make([]transcript.Kind, len(turns))
	for i, turn := range turns {
		out[i] = turn.Kind
	}
	return out
}

func TestNewSession_InitialState(t *testing.T) {
	f := newFixture(t)
	v := f.view(t)

	assert.Equal(t, StateAwaitingOccasion, v.State)
	assert.Empty(t, v.PendingCategory)
	assert.False(t, v.OccasionResolved)
	assert.Equal(t, 1, v.OutfitCount)
	assert.Equal(t, "casual", v.Slots[taxonomy.Occasion])
	assert.Equal(t, "any", v.Slots[taxonomy.Weather])
	assert.Equal(t, "None", v.Slots[taxonomy.Budget])
	assert.Equal(t, HandoffIdle, v.Handoff.State)
	assert.Zero(t, v.TurnCount)
}

func TestProcess_OccasionMessage(t *testing.T) {
	f := newFixture(t)

	out := f.say(t, "I have to go to a wedding")

	assert.Equal(t, PathOccasion, out.Path)
	require.NotNil(t, out.Applied)
	assert.Equal(t, Fill{Category: taxonomy.Occasion, Value: "wedding"}, *out.Applied)
	assert.Equal(t, []transcript.Kind{transcript.KindMessage, transcript.KindConfirmation}, kinds(out.Turns))
	assert.Equal(t, "A wedding look, great choice.", out.Turns[1].Content)

	v := f.view(t)
	assert.Equal(t, "wedding", v.Slots[taxonomy.Occasion])
	assert.Equal(t, taxonomy.Weather, v.PendingCategory)
	assert.Equal(t, StateAwaitingFollowup, v.State)

	// The follow-up question is paced and lands after the confirmation.
	assert.Equal(t, 1, f.pacer.Flush())
	last := f.lastTurn(t)
	assert.Equal(t, transcript.KindQuestion, last.Kind)
	assert.Equal(t, "What will the weather be like?", last.Content)
}

func TestProcess_SeveralOccasionsUseTieBreak(t *testing.T) {
	var seen []string
	last := func(cands []matcher.Candidate) matcher.Candidate {
		for _, c := range cands {
			seen = append(seen, c.Value)
		}
		return cands[len(cands)-1]
	}
	f := newFixture(t, func(o *Options) { o.TieBreak = last })

	out := f.say(t, "a wedding or a funeral")
	assert.Equal(t, PathOccasion, out.Path)
	require.NotNil(t, out.Applied)
	assert.Equal(t, Fill{Category: taxonomy.Occasion, Value: "funeral"}, *out.Applied)
	assert.Equal(t, []string{"wedding", "funeral"}, seen)
	assert.Equal(t, "funeral", f.view(t).Slots[taxonomy.Occasion])
}

func TestProcess_PendingCategoryTakesPriority(t *testing.T) {
	f := newFixture(t)
	f.say(t, "I have to go to a wedding")
	f.pacer.Flush()

	out := f.say(t, "it's summer and rainy")

	assert.Equal(t, PathPending, out.Path)
	require.NotNil(t, out.Applied)
	assert.Equal(t, Fill{Category: taxonomy.Weather, Value: "rainy"}, *out.Applied)

	v := f.view(t)
	assert.Equal(t, "rainy", v.Slots[taxonomy.Weather])
	assert.Equal(t, "None", v.Slots[taxonomy.Season], "only the pending category is filled")
	assert.Equal(t, taxonomy.MaterialPreference, v.PendingCategory)
}

func TestProcess_QuestionWithoutMatchesGetsGuidance(t *testing.T) {
	f := newFixture(t)

	out := f.say(t, "What should I wear?")

	assert.Equal(t, PathGuidance, out.Path)
	assert.True(t, out.IsQuestion)
	assert.Empty(t, out.Candidates)
	assert.Equal(t, []transcript.Kind{
		transcript.KindMessage, transcript.KindGuidance, transcript.KindOptions,
	}, kinds(out.Turns))
	assert.Equal(t, questionGuidance, out.Turns[1].Content)

	occasions := taxonomy.Builtin()
	values, err := occasions.ValuesOf(taxonomy.Occasion)
	require.NoError(t, err)

	v := f.view(t)
	require.Len(t, v.Options, len(values))
	for i, o := range v.Options {
		assert.Equal(t, Option{Category: taxonomy.Occasion, Value: values[i]}, o)
	}
	assert.False(t, v.OccasionResolved)
}

func TestProcess_StatementWithoutMatchesGetsGuidance(t *testing.T) {
	f := newFixture(t)
	out := f.say(t, "hello there")

	assert.Equal(t, PathGuidance, out.Path)
	assert.False(t, out.IsQuestion)
	assert.Equal(t, statementGuidance, out.Turns[1].Content)
}

func TestProcess_NonOccasionMatchesAreOffered(t *testing.T) {
	f := newFixture(t)

	out := f.say(t, "something in navy")

	assert.Equal(t, PathOffer, out.Path)
	assert.Nil(t, out.Applied)
	require.Len(t, out.Turns, 2)
	assert.Equal(t, transcript.KindOptions, out.Turns[1].Kind)
	assert.Contains(t, out.Turns[1].Content, "navy")

	v := f.view(t)
	assert.Equal(t, []Option{{Category: taxonomy.ColorPreference, Value: "navy"}}, v.Options)
	assert.Equal(t, "None", v.Slots[taxonomy.ColorPreference], "offered values are not applied")
}

func TestProcess_GuidanceAfterOccasion(t *testing.T) {
	tests := []struct {
		name        string
		reoffer     bool
		wantLead    string
		wantOptions string
	}{
		{"repeats pending question", false, pendingRetryLead + "What will the weather be like?", taxonomy.Weather},
		{"re-offers occasion menu", true, statementGuidance, taxonomy.Occasion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *Options) { o.ReofferOccasionMenu = tt.reoffer })
			f.say(t, "I have to go to a wedding")
			f.pacer.Flush()

			out := f.say(t, "hmm not sure")

			assert.Equal(t, PathGuidance, out.Path)
			require.Len(t, out.Turns, 3)
			assert.Equal(t, tt.wantLead, out.Turns[1].Content)

			v := f.view(t)
			require.NotEmpty(t, v.Options)
			for _, o := range v.Options {
				assert.Equal(t, tt.wantOptions, o.Category)
			}
			assert.Equal(t, taxonomy.Weather, v.PendingCategory, "guidance leaves the pending category alone")
		})
	}
}

func TestProcess_QueuedQuestionFlushedBeforeNextMessage(t *testing.T) {
	f := newFixture(t)
	f.say(t, "I have to go to a wedding")

	out := f.say(t, "rainy")

	assert.Equal(t, []transcript.Kind{
		transcript.KindQuestion, transcript.KindMessage, transcript.KindConfirmation,
	}, kinds(out.Turns))
	assert.Equal(t, "What will the weather be like?", out.Turns[0].Content)
	assert.Equal(t, 1, f.pacer.Flush(), "only the material question remains")
}

func completeConversation(t *testing.T, f *fixture) {
	t.Helper()
	for _, msg := range []string{
		"I have to go to a wedding",
		"it's summer and rainy",
		"linen",
		"slim",
		"evening",
		"summer",
		"navy",
		"premium",
		"bold",
	} {
		f.say(t, msg)
		f.pacer.Flush()
	}
}

func TestProcess_CompletesAfterEveryFollowup(t *testing.T) {
	f := newFixture(t)
	completeConversation(t, f)
	f.session.Wait()

	v := f.view(t)
	assert.Equal(t, StateComplete, v.State)
	assert.Empty(t, v.PendingCategory)
	require.NotNil(t, v.Request)

	tax := taxonomy.Builtin()
	for _, name := range FollowupOrder {
		assert.False(t, tax.IsSentinel(name, v.Request.Value(name)), name)
	}
	assert.Equal(t, "wedding", v.Request.Occasion)
	assert.Equal(t, "rainy", v.Request.Weather)
	assert.Equal(t, "linen", v.Request.MaterialPreference)
	assert.Equal(t, 1, v.Request.OutfitCount)

	assert.Equal(t, 1, f.dispatcher.count(), "recommender is invoked exactly once")
	assert.Equal(t, HandoffAccepted, v.Handoff.State)
	assert.Equal(t, "ref-conv-1", v.Handoff.ReferenceID)

	last := f.lastTurn(t)
	assert.Equal(t, transcript.KindNotice, last.Kind)
	assert.Contains(t, last.Content, "ref-conv-1")
}

func TestProcess_AfterComplete(t *testing.T) {
	f := newFixture(t)
	completeConversation(t, f)
	f.session.Wait()
	before := f.view(t)

	out := f.say(t, "actually make it a party")

	assert.Equal(t, PathComplete, out.Path)
	assert.Equal(t, alreadyComplete, out.Turns[1].Content)
	after := f.view(t)
	assert.Equal(t, before.Slots, after.Slots)
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestSelect(t *testing.T) {
	t.Run("applies value and asks for occasion first", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.session.Select(context.Background(), taxonomy.Weather, "rainy")
		require.NoError(t, err)
		assert.Equal(t, PathSelect, out.Path)
		assert.Equal(t, []transcript.Kind{transcript.KindMessage, transcript.KindConfirmation}, kinds(out.Turns))

		v := f.view(t)
		assert.Equal(t, "rainy", v.Slots[taxonomy.Weather])
		assert.Equal(t, StateAwaitingOccasion, v.State)
		assert.Empty(t, v.PendingCategory)

		f.pacer.Flush()
		assert.Equal(t, "What's the occasion you're dressing for?", f.lastTurn(t).Content)
	})

	t.Run("skips categories already filled", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.session.Select(context.Background(), taxonomy.Weather, "rainy")
		require.NoError(t, err)
		_, err = f.session.Select(context.Background(), taxonomy.Occasion, "party")
		require.NoError(t, err)

		assert.Equal(t, taxonomy.MaterialPreference, f.view(t).PendingCategory)
	})

	t.Run("removes offered options of the category", func(t *testing.T) {
		f := newFixture(t)
		f.say(t, "What should I wear?")
		_, err := f.session.Select(context.Background(), taxonomy.Occasion, "brunch")
		require.NoError(t, err)
		assert.Empty(t, f.view(t).Options)
	})

	invalid := []struct {
		name     string
		category string
		value    string
	}{
		{"unknown category", "colour", "red"},
		{"unknown value", taxonomy.Weather, "snowstorm"},
		{"sentinel", taxonomy.Weather, "any"},
		{"empty", taxonomy.Budget, ""},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			before := f.view(t)

			_, err := f.session.Select(context.Background(), tt.category, tt.value)
			assert.ErrorIs(t, err, ErrInvalidSelection)
			assert.Equal(t, before, f.view(t))
		})
	}

	t.Run("complete conversation", func(t *testing.T) {
		f := newFixture(t)
		completeConversation(t, f)
		_, err := f.session.Select(context.Background(), taxonomy.Budget, "luxury")
		assert.ErrorIs(t, err, ErrConversationComplete)
	})
}

func TestSetOutfitCount(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxOutfitCount = 4 })

	require.NoError(t, f.session.SetOutfitCount(3))
	assert.Equal(t, 3, f.view(t).OutfitCount)

	for _, n := range []int{0, -1, 5} {
		assert.ErrorIs(t, f.session.SetOutfitCount(n), ErrInvalidOutfitCount)
	}
	assert.Equal(t, 3, f.view(t).OutfitCount)

	completeConversation(t, f)
	f.session.Wait()
	v := f.view(t)
	require.NotNil(t, v.Request)
	assert.Equal(t, 3, v.Request.OutfitCount)
	assert.Contains(t, f.dispatcher.calls[0].Values(), taxonomy.Occasion)
}

func TestReset(t *testing.T) {
	t.Run("matches a fresh session", func(t *testing.T) {
		fresh := newFixture(t)
		used := newFixture(t)
		completeConversation(t, used)
		used.session.Wait()
		require.NoError(t, used.session.SetOutfitCount(2))

		require.NoError(t, used.session.Reset())

		assert.Equal(t, fresh.view(t), used.view(t))
		turns, err := used.session.Transcript()
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("cancels the queued question", func(t *testing.T) {
		f := newFixture(t)
		f.say(t, "I have to go to a wedding")
		require.Equal(t, 1, f.pacer.Len())

		require.NoError(t, f.session.Reset())

		assert.Zero(t, f.pacer.Flush())
		turns, err := f.session.Transcript()
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.say(t, "I have to go to a wedding")
		require.NoError(t, f.session.Reset())
		once := f.view(t)
		require.NoError(t, f.session.Reset())
		assert.Equal(t, once, f.view(t))
	})

	t.Run("discards a late handoff result", func(t *testing.T) {
		release := make(chan struct{})
		blocking := dispatcherFunc(func(ctx context.Context) (recommend.Receipt, error) {
			<-release
			return recommend.Receipt{ReferenceID: "late"}, nil
		})
		f := newFixture(t, func(o *Options) { o.Dispatcher = blocking })
		completeConversation(t, f)

		require.NoError(t, f.session.Reset())
		close(release)
		f.session.Wait()

		v := f.view(t)
		assert.Equal(t, HandoffIdle, v.Handoff.State)
		assert.Zero(t, v.TurnCount)
	})
}

type dispatcherFunc func(ctx context.Context) (recommend.Receipt, error)

func (d dispatcherFunc) Send(ctx context.Context, _, _ string, _ recommend.Request) (recommend.Receipt, error) {
	return d(ctx)
}

func TestRetryRecommendation(t *testing.T) {
	t.Run("after a failed handoff", func(t *testing.T) {
		f := newFixture(t)
		f.dispatcher.errs = []error{errors.New("503 from recommender")}
		completeConversation(t, f)
		f.session.Wait()

		failed := f.view(t)
		assert.Equal(t, HandoffFailed, failed.Handoff.State)
		assert.Equal(t, transcript.KindError, f.lastTurn(t).Kind)
		assert.Equal(t, handoffFailed, f.lastTurn(t).Content)

		require.NoError(t, f.session.RetryRecommendation(context.Background()))
		f.session.Wait()

		v := f.view(t)
		assert.Equal(t, HandoffAccepted, v.Handoff.State)
		assert.Equal(t, 2, v.Handoff.Attempts)
		assert.Equal(t, failed.Slots, v.Slots, "retry never touches slots")
		assert.Equal(t, 2, f.dispatcher.count())
		assert.Equal(t, f.dispatcher.calls[0], f.dispatcher.calls[1])
	})

	t.Run("before completion", func(t *testing.T) {
		f := newFixture(t)
		f.say(t, "I have to go to a wedding")
		assert.ErrorIs(t, f.session.RetryRecommendation(context.Background()), ErrNotComplete)
		assert.Zero(t, f.dispatcher.count())
	})

	t.Run("while in flight", func(t *testing.T) {
		release := make(chan struct{})
		blocking := dispatcherFunc(func(ctx context.Context) (recommend.Receipt, error) {
			<-release
			return recommend.Receipt{ReferenceID: "r"}, nil
		})
		f := newFixture(t, func(o *Options) { o.Dispatcher = blocking })
		completeConversation(t, f)

		assert.ErrorIs(t, f.session.RetryRecommendation(context.Background()), ErrHandoffInFlight)
		close(release)
		f.session.Wait()
	})
}

func TestSession_NotReady(t *testing.T) {
	s := NewSession("conv-x", nil, Options{Pacer: &ManualPacer{}})
	defer s.Close()

	assert.False(t, s.Ready())
	_, err := s.Process(context.Background(), "I have to go to a wedding")
	assert.ErrorIs(t, err, ErrTaxonomyNotReady)
	_, err = s.Select(context.Background(), taxonomy.Occasion, "wedding")
	assert.ErrorIs(t, err, ErrTaxonomyNotReady)
	assert.ErrorIs(t, s.SetOutfitCount(2), ErrTaxonomyNotReady)
	assert.ErrorIs(t, s.Reset(), ErrTaxonomyNotReady)
	_, err = s.Snapshot()
	assert.ErrorIs(t, err, ErrTaxonomyNotReady)

	tax := taxonomy.Builtin()
	assert.True(t, s.Attach(tax))
	assert.False(t, s.Attach(tax))
	assert.True(t, s.Ready())

	_, err = s.Process(context.Background(), "I have to go to a wedding")
	assert.NoError(t, err)
}

func TestSession_OnTurnSeesEveryTurn(t *testing.T) {
	var mu sync.Mutex
	var seen []transcript.Turn
	f := newFixture(t, func(o *Options) {
		o.OnTurn = func(sessionID string, turn transcript.Turn) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "conv-1", sessionID)
			seen = append(seen, turn)
		}
	})

	f.say(t, "I have to go to a wedding")
	f.pacer.Flush()

	turns, err := f.session.Transcript()
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, turns, seen)
}

func TestSession_OnHandoffReportsEachAttempt(t *testing.T) {
	var mu sync.Mutex
	var seen []HandoffStatus
	f := newFixture(t, func(o *Options) {
		o.OnHandoff = func(sessionID string, status HandoffStatus) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "conv-1", sessionID)
			seen = append(seen, status)
		}
	})
	f.dispatcher.errs = []error{errors.New("503 from recommender")}

	completeConversation(t, f)
	f.session.Wait()
	require.NoError(t, f.session.RetryRecommendation(context.Background()))
	f.session.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, HandoffFailed, seen[0].State)
	assert.Equal(t, 1, seen[0].Attempts)
	assert.Equal(t, HandoffStatus{State: HandoffAccepted, Attempts: 2, ReferenceID: "ref-conv-1"}, seen[1])
}

func TestSettle(t *testing.T) {
	f := newFixture(t)
	f.say(t, "I have to go to a wedding")

	turns := f.session.Settle()
	require.Len(t, turns, 1)
	assert.Equal(t, transcript.KindQuestion, turns[0].Kind)
	assert.Nil(t, f.session.Settle())
	assert.Zero(t, f.pacer.Flush())
}

func TestSession_DelayPacerDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	tax := taxonomy.Builtin()
	d := &fakeDispatcher{}
	s := NewSession("conv-timer", tax, Options{
		Pacer:      DelayPacer{Delay: 5 * time.Millisecond},
		Dispatcher: d,
		IDs:        &seqIDs{},
	})

	_, err := s.Process(context.Background(), "I have to go to a wedding")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		turns, err := s.Transcript()
		return err == nil && len(turns) == 3 && turns[2].Kind == transcript.KindQuestion
	}, time.Second, 5*time.Millisecond)

	s.Close()
}
