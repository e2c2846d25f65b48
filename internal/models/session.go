package models

import (
	"strconv"
	"time"

	"styling-assistant/internal/styling/dialogue"
	"styling-assistant/internal/styling/matcher"
	"styling-assistant/internal/styling/recommend"
	"styling-assistant/internal/styling/transcript"
)

// SessionView is the conversation state returned to the process after every
// styling job.
type SessionView struct {
	SessionID        string             `json:"sessionId"`
	State            string             `json:"state"`
	PendingCategory  string             `json:"pendingCategory"`
	OccasionResolved bool               `json:"occasionResolved"`
	Slots            map[string]string  `json:"slots"`
	Options          []Option           `json:"options"`
	OutfitCount      int                `json:"outfitCount"`
	Request          *recommend.Request `json:"recommendationRequest,omitempty"`
	Handoff          Handoff            `json:"handoff"`
	Turns            []Turn             `json:"turns"`
}

type Option struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

type Handoff struct {
	State       string `json:"state"`
	Attempts    int    `json:"attempts"`
	ReferenceID string `json:"referenceId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Turn is a transcript entry. IDs are strings so that 64-bit snowflake ids
// survive JSON consumers that parse numbers as doubles.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Candidate struct {
	Category   string  `json:"category"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// NewSessionView combines a snapshot with the turns a job appended.
func NewSessionView(v dialogue.View, turns []transcript.Turn) *SessionView {
	out := &SessionView{
		SessionID:        v.ID,
		State:            string(v.State),
		PendingCategory:  v.PendingCategory,
		OccasionResolved: v.OccasionResolved,
		Slots:            v.Slots,
		Options:          make([]Option, len(v.Options)),
		OutfitCount:      v.OutfitCount,
		Request:          v.Request,
		Handoff:          NewHandoff(v.Handoff),
		Turns:            NewTurns(turns),
	}
	for i, o := range v.Options {
		out.Options[i] = Option{Category: o.Category, Value: o.Value}
	}
	return out
}

func NewHandoff(h dialogue.HandoffStatus) Handoff {
	return Handoff{
		State:       string(h.State),
		Attempts:    h.Attempts,
		ReferenceID: h.ReferenceID,
		Error:       h.Error,
	}
}

func NewTurns(turns []transcript.Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = Turn{
			ID:        strconv.FormatInt(t.ID, 10),
			Role:      string(t.Role),
			Kind:      string(t.Kind),
			Content:   t.Content,
			Timestamp: t.Timestamp,
		}
	}
	return out
}

func NewCandidates(cands []matcher.Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	for i, c := range cands {
		out[i] = Candidate{Category: c.Category, Value: c.Value, Confidence: float64(c.Confidence)}
	}
	return out
}
