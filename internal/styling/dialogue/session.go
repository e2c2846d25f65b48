// Package dialogue runs the slot-filling conversation that turns chat
// messages into a complete recommendation request.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/metrics"
	"styling-assistant/internal/styling/matcher"
	"styling-assistant/internal/styling/recommend"
	"styling-assistant/internal/styling/taxonomy"
	"styling-assistant/internal/styling/transcript"
)

var (
	ErrTaxonomyNotReady     = errors.New("TAXONOMY_NOT_READY")
	ErrInvalidSelection     = errors.New("INVALID_SELECTION")
	ErrInvalidOutfitCount   = errors.New("INVALID_OUTFIT_COUNT")
	ErrConversationComplete = errors.New("SESSION_COMPLETE")
	ErrNotComplete          = errors.New("SESSION_INCOMPLETE")
	ErrHandoffInFlight      = errors.New("RECOMMENDATION_IN_FLIGHT")
)

type State string

const (
	StateAwaitingOccasion State = "awaiting_occasion"
	StateAwaitingFollowup State = "awaiting_followup"
	StateComplete         State = "complete"
)

// Path names the branch a message took through the turn logic.
type Path string

const (
	PathPending  Path = "pending"
	PathOccasion Path = "occasion"
	PathOffer    Path = "offer"
	PathGuidance Path = "guidance"
	PathComplete Path = "complete"
	PathSelect   Path = "selection"
)

// HandoffState tracks the latest recommender dispatch of a session.
type HandoffState string

const (
	HandoffIdle     HandoffState = "idle"
	HandoffInFlight HandoffState = "in_flight"
	HandoffAccepted HandoffState = "accepted"
	HandoffFailed   HandoffState = "failed"
)

type HandoffStatus struct {
	State       HandoffState `json:"state"`
	Attempts    int          `json:"attempts"`
	ReferenceID string       `json:"referenceId,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Dispatcher hands a completed request to the recommendation service.
type Dispatcher interface {
	Send(ctx context.Context, sessionID, userID string, req recommend.Request) (recommend.Receipt, error)
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	UserID              string
	Pacer               Pacer
	Dispatcher          Dispatcher
	TieBreak            TieBreak
	ReofferOccasionMenu bool
	DefaultOutfitCount  int
	MaxOutfitCount      int
	IDs                 transcript.IDGenerator
	// OnTurn observes every appended turn. It runs under the session lock
	// and must not block or call back into the session.
	OnTurn func(sessionID string, turn transcript.Turn)
	// OnHandoff is told how each handoff settled. It runs outside the lock
	// on the handoff goroutine, so Wait and Close also wait for it.
	OnHandoff func(sessionID string, status HandoffStatus)
	Logger    logger.Logger
}

func (o *Options) withDefaults() {
	if o.Pacer == nil {
		o.Pacer = DelayPacer{}
	}
	if o.TieBreak == nil {
		o.TieBreak = HighestRankedFirst
	}
	if o.MaxOutfitCount <= 0 {
		o.MaxOutfitCount = 5
	}
	if o.DefaultOutfitCount <= 0 || o.DefaultOutfitCount > o.MaxOutfitCount {
		o.DefaultOutfitCount = 1
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoOpLogger()
	}
}

// Fill is one slot assignment.
type Fill struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Outcome describes what a single inbound action did.
type Outcome struct {
	Path       Path
	IsQuestion bool
	Candidates []matcher.Candidate
	Applied    *Fill
	// Turns holds every turn appended while handling the action.
	Turns []transcript.Turn
}

type queuedQuestion struct {
	id       uint64
	category string
	cancel   Cancel
}

// Session is the dialogue state of one conversation. All methods are safe
// for concurrent use; inbound actions are serialized.
type Session struct {
	mu     sync.Mutex
	id     string
	opts   Options
	logger logger.Logger

	tax     *taxonomy.Taxonomy
	matcher *matcher.Matcher

	slots            map[string]string
	pending          string
	offered          []Option
	occasionResolved bool
	state            State
	outfitCount      int
	transcript       *transcript.Transcript
	request          *recommend.Request
	handoff          HandoffStatus

	queued     *queuedQuestion
	seq        uint64
	generation uint64

	handoffCtx    context.Context
	cancelHandoff context.CancelFunc
	inflight      sync.WaitGroup
}

// NewSession creates a conversation. A nil taxonomy yields a session that
// rejects every action with ErrTaxonomyNotReady until one is attached.
func NewSession(id string, tax *taxonomy.Taxonomy, opts Options) *Session {
	opts.withDefaults()
	s := &Session{
		id:     id,
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"sessionId": id}),
	}
	s.handoffCtx, s.cancelHandoff = context.WithCancel(context.Background())
	if tax != nil {
		s.attach(tax)
	}
	return s
}

func (s *Session) attach(tax *taxonomy.Taxonomy) {
	s.tax = tax
	s.matcher = matcher.New(tax)
	s.resetLocked()
}

// Attach supplies the taxonomy to a session created without one. A session
// keeps the first taxonomy it receives; later calls report false.
func (s *Session) Attach(tax *taxonomy.Taxonomy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tax != nil || tax == nil {
		return false
	}
	s.attach(tax)
	return true
}

func (s *Session) ID() string { return s.id }

func (s *Session) handoffInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handoff.State == HandoffInFlight
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tax != nil
}

func (s *Session) resetLocked() {
	s.slots = s.tax.Defaults()
	s.pending = ""
	s.offered = nil
	s.occasionResolved = false
	s.state = StateAwaitingOccasion
	s.outfitCount = s.opts.DefaultOutfitCount
	s.transcript = transcript.New(s.opts.IDs)
	s.request = nil
	s.handoff = HandoffStatus{State: HandoffIdle}
}

func (s *Session) say(role transcript.Role, kind transcript.Kind, content string) transcript.Turn {
	turn := s.transcript.Append(role, kind, content)
	if s.opts.OnTurn != nil {
		s.opts.OnTurn(s.id, turn)
	}
	return turn
}

// Process handles one inbound chat message.
func (s *Session) Process(ctx context.Context, message string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tax == nil {
		return Outcome{}, ErrTaxonomyNotReady
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	mark := s.transcript.Len()
	s.flushQueuedLocked()
	s.say(transcript.RoleUser, transcript.KindMessage, message)

	out := s.processLocked(message)
	out.Turns = s.transcript.Since(mark)
	metrics.MessagesTotal.WithLabelValues(string(out.Path)).Inc()
	return out, nil
}

func (s *Session) processLocked(message string) Outcome {
	if s.state == StateComplete {
		s.say(transcript.RoleSystem, transcript.KindNotice, alreadyComplete)
		return Outcome{Path: PathComplete}
	}

	result := s.matcher.Match(message)
	for _, c := range result.Candidates {
		metrics.CandidatesTotal.WithLabelValues(c.Confidence.Tier()).Inc()
	}
	out := Outcome{IsQuestion: result.IsQuestion, Candidates: result.Candidates}

	if s.pending != "" {
		if cands := result.For(s.pending); len(cands) > 0 {
			pick := s.opts.TieBreak(cands)
			category := s.pending
			s.pending = ""
			s.applyLocked(category, pick.Value, "message")
			out.Path = PathPending
			out.Applied = &Fill{Category: category, Value: pick.Value}
			return out
		}
	}

	if occ := result.For(taxonomy.Occasion); len(occ) > 0 {
		pick := s.opts.TieBreak(occ)
		s.applyLocked(taxonomy.Occasion, pick.Value, "message")
		out.Path = PathOccasion
		out.Applied = &Fill{Category: taxonomy.Occasion, Value: pick.Value}
		return out
	}

	if len(result.Candidates) > 0 {
		s.offered = s.offered[:0]
		for _, c := range result.Candidates {
			s.offered = append(s.offered, Option{Category: c.Category, Value: c.Value})
		}
		s.say(transcript.RoleSystem, transcript.KindOptions, describeOptions(s.offered, s.tax))
		out.Path = PathOffer
		return out
	}

	s.guideLocked(result.IsQuestion)
	out.Path = PathGuidance
	return out
}

// guideLocked answers a message that matched nothing. Until the occasion is
// known, or when ReofferOccasionMenu is set, it offers the occasion menu;
// otherwise it repeats the pending question with that category's values.
func (s *Session) guideLocked(isQuestion bool) {
	menu := taxonomy.Occasion
	if s.occasionResolved && !s.opts.ReofferOccasionMenu && s.pending != "" {
		menu = s.pending
	}
	c, _ := s.tax.Category(menu)

	switch {
	case menu != taxonomy.Occasion && isQuestion:
		s.say(transcript.RoleSystem, transcript.KindGuidance, pendingQuestionLead+questionFor(c))
	case menu != taxonomy.Occasion:
		s.say(transcript.RoleSystem, transcript.KindGuidance, pendingRetryLead+questionFor(c))
	case isQuestion:
		s.say(transcript.RoleSystem, transcript.KindGuidance, questionGuidance)
	default:
		s.say(transcript.RoleSystem, transcript.KindGuidance, statementGuidance)
	}

	s.offered = make([]Option, 0, len(c.Values))
	for _, v := range c.Values {
		s.offered = append(s.offered, Option{Category: menu, Value: v})
	}
	s.say(transcript.RoleSystem, transcript.KindOptions, describeMenu(c, c.Values))
}

// Select applies an option the user picked explicitly. Unknown categories,
// sentinels and values outside the taxonomy are rejected without any change.
func (s *Session) Select(ctx context.Context, category, value string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tax == nil {
		return Outcome{}, ErrTaxonomyNotReady
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if !s.tax.IsValue(category, value) {
		return Outcome{}, fmt.Errorf("%w: %s=%q", ErrInvalidSelection, category, value)
	}
	if s.state == StateComplete {
		return Outcome{}, ErrConversationComplete
	}

	mark := s.transcript.Len()
	s.flushQueuedLocked()
	s.say(transcript.RoleUser, transcript.KindMessage, value)
	s.applyLocked(category, value, "selection")

	return Outcome{
		Path:    PathSelect,
		Applied: &Fill{Category: category, Value: value},
		Turns:   s.transcript.Since(mark),
	}, nil
}

// applyLocked sets a slot, confirms it and moves the conversation on.
func (s *Session) applyLocked(category, value, source string) {
	c, _ := s.tax.Category(category)

	s.slots[category] = value
	metrics.SlotFillsTotal.WithLabelValues(category, source).Inc()
	s.logger.Info("slot filled", map[string]interface{}{
		"category": category,
		"value":    value,
		"source":   source,
	})

	s.say(transcript.RoleSystem, transcript.KindConfirmation, confirmationFor(c, value))

	kept := s.offered[:0]
	for _, o := range s.offered {
		if o.Category != category {
			kept = append(kept, o)
		}
	}
	s.offered = kept

	if category == taxonomy.Occasion {
		s.occasionResolved = true
	}
	if s.pending == category {
		s.pending = ""
	}

	if !s.occasionResolved {
		s.pending = ""
		s.state = StateAwaitingOccasion
		s.queueQuestionLocked(taxonomy.Occasion)
		return
	}

	if next := s.nextFollowupLocked(); next != "" {
		s.pending = next
		s.state = StateAwaitingFollowup
		s.queueQuestionLocked(next)
		return
	}

	s.pending = ""
	s.completeLocked()
}

func (s *Session) nextFollowupLocked() string {
	for _, name := range FollowupOrder {
		if s.tax.IsSentinel(name, s.slots[name]) {
			return name
		}
	}
	return ""
}

// queueQuestionLocked defers the question turn through the pacer. Slot and
// pending state are already settled when it is called.
func (s *Session) queueQuestionLocked(category string) {
	s.flushQueuedLocked()

	s.seq++
	q := &queuedQuestion{id: s.seq, category: category}
	s.queued = q
	q.cancel = s.opts.Pacer.Schedule(func() { s.fire(q.id) })
}

func (s *Session) fire(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued == nil || s.queued.id != id {
		return
	}
	s.emitQueuedLocked()
}

func (s *Session) emitQueuedLocked() {
	q := s.queued
	s.queued = nil
	c, _ := s.tax.Category(q.category)
	s.say(transcript.RoleSystem, transcript.KindQuestion, questionFor(c))
}

// flushQueuedLocked appends a still-queued question immediately so it never
// lands after a later turn.
func (s *Session) flushQueuedLocked() {
	if s.queued == nil {
		return
	}
	s.queued.cancel()
	s.emitQueuedLocked()
}

func (s *Session) cancelQueuedLocked() {
	if s.queued == nil {
		return
	}
	s.queued.cancel()
	s.queued = nil
}

// Settle appends any deferred follow-up question now and returns the turns
// it appended.
func (s *Session) Settle() []transcript.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tax == nil || s.queued == nil {
		return nil
	}
	mark := s.transcript.Len()
	s.flushQueuedLocked()
	return s.transcript.Since(mark)
}

func (s *Session) completeLocked() {
	s.state = StateComplete

	req, err := recommend.Assemble(s.tax, s.slots, s.outfitCount)
	if err != nil {
		s.logger.Error("failed to assemble recommendation request", map[string]interface{}{"error": err})
		s.say(transcript.RoleSystem, transcript.KindError, "Something went wrong preparing your request.")
		return
	}
	s.request = &req
	metrics.SessionsCompleted.Inc()
	s.logger.Info("conversation complete", map[string]interface{}{
		"outfitCount": req.OutfitCount,
		"unset":       req.Unset(s.tax),
	})

	s.say(transcript.RoleSystem, transcript.KindNotice, fmt.Sprintf(completeNotice, outfitPhrase(req.OutfitCount)))
	s.dispatchLocked()
}

// dispatchLocked starts the asynchronous handoff of the stored request. The
// outcome is reported as a turn; slots are never touched.
func (s *Session) dispatchLocked() {
	if s.opts.Dispatcher == nil {
		s.logger.Warn("no recommender configured, request not handed off", nil)
		return
	}

	s.handoff = HandoffStatus{State: HandoffInFlight, Attempts: s.handoff.Attempts + 1}
	gen := s.generation
	req := *s.request
	ctx := s.handoffCtx
	userID := s.opts.UserID

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		receipt, err := s.opts.Dispatcher.Send(ctx, s.id, userID, req)
		s.finishHandoff(gen, receipt, err)
	}()
}

func (s *Session) finishHandoff(gen uint64, receipt recommend.Receipt, err error) {
	s.mu.Lock()
	if gen != s.generation || s.tax == nil {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.handoff.State = HandoffFailed
		s.handoff.Error = err.Error()
		s.say(transcript.RoleSystem, transcript.KindError, handoffFailed)
	} else {
		s.handoff.State = HandoffAccepted
		s.handoff.ReferenceID = receipt.ReferenceID
		s.handoff.Error = ""
		s.say(transcript.RoleSystem, transcript.KindNotice, fmt.Sprintf(handoffAccepted, receipt.ReferenceID))
	}
	status := s.handoff
	s.mu.Unlock()

	if s.opts.OnHandoff != nil {
		s.opts.OnHandoff(s.id, status)
	}
}

// RetryRecommendation re-sends the stored request of a completed
// conversation without re-asking any question.
func (s *Session) RetryRecommendation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tax == nil {
		return ErrTaxonomyNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state != StateComplete || s.request == nil {
		return ErrNotComplete
	}
	if s.handoff.State == HandoffInFlight {
		return ErrHandoffInFlight
	}
	s.dispatchLocked()
	return nil
}

// SetOutfitCount changes how many outfits a future request asks for.
func (s *Session) SetOutfitCount(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tax == nil {
		return ErrTaxonomyNotReady
	}
	if n < 1 || n > s.opts.MaxOutfitCount {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidOutfitCount, n, s.opts.MaxOutfitCount)
	}
	s.outfitCount = n
	return nil
}

// Reset returns the session to its freshly created state. A queued follow-up
// is cancelled and the result of an in-flight handoff is discarded.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tax == nil {
		return ErrTaxonomyNotReady
	}
	s.cancelQueuedLocked()
	s.generation++
	s.cancelHandoff()
	s.handoffCtx, s.cancelHandoff = context.WithCancel(context.Background())
	s.resetLocked()
	return nil
}

// View is a point-in-time copy of session state.
type View struct {
	ID               string             `json:"sessionId"`
	State            State              `json:"state"`
	Slots            map[string]string  `json:"slots"`
	PendingCategory  string             `json:"pendingCategory,omitempty"`
	Options          []Option           `json:"options"`
	OccasionResolved bool               `json:"occasionResolved"`
	OutfitCount      int                `json:"outfitCount"`
	Request          *recommend.Request `json:"request,omitempty"`
	Handoff          HandoffStatus      `json:"handoff"`
	TurnCount        int                `json:"turnCount"`
}

func (s *Session) Snapshot() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tax == nil {
		return View{}, ErrTaxonomyNotReady
	}

	slots := make(map[string]string, len(s.slots))
	for k, v := range s.slots {
		slots[k] = v
	}
	v := View{
		ID:               s.id,
		State:            s.state,
		Slots:            slots,
		PendingCategory:  s.pending,
		Options:          append([]Option{}, s.offered...),
		OccasionResolved: s.occasionResolved,
		OutfitCount:      s.outfitCount,
		Handoff:          s.handoff,
		TurnCount:        s.transcript.Len(),
	}
	if s.request != nil {
		req := *s.request
		v.Request = &req
	}
	return v, nil
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() ([]transcript.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tax == nil {
		return nil, ErrTaxonomyNotReady
	}
	return s.transcript.Turns(), nil
}

// Wait blocks until in-flight handoffs have reported back.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close cancels queued and in-flight work and waits for it to stop.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelQueuedLocked()
	s.generation++
	s.cancelHandoff()
	s.mu.Unlock()
	s.inflight.Wait()
}
