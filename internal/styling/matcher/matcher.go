// Package matcher scores free-text chat messages against the attribute
// taxonomy using deterministic phrase matching.
package matcher

import (
	"regexp"
	"strings"

	"styling-assistant/internal/styling/taxonomy"
)

// Confidence is a match strength tier. Only the four declared values occur.
type Confidence float64

const (
	None       Confidence = 0
	AllWords   Confidence = 0.8
	Standalone Confidence = 0.9
	Exact      Confidence = 1.0
)

// Threshold is the minimum confidence a candidate needs to be reported.
const Threshold = AllWords

// Tier names a confidence for logs and metrics.
func (c Confidence) Tier() string {
	switch c {
	case Exact:
		return "exact"
	case Standalone:
		return "standalone"
	case AllWords:
		return "all_words"
	default:
		return "none"
	}
}

// Candidate is one (category, value) reading of a message.
type Candidate struct {
	Category   string     `json:"category"`
	Value      string     `json:"value"`
	Confidence Confidence `json:"confidence"`
}

// Result is the outcome of matching one message.
type Result struct {
	IsQuestion bool
	Candidates []Candidate
}

// For returns the candidates of a single category, preserving rank order.
func (r Result) For(category string) []Candidate {
	var out []Candidate
	for _, c := range r.Candidates {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// Excluding returns the candidates of every category but the given one.
func (r Result) Excluding(category string) []Candidate {
	var out []Candidate
	for _, c := range r.Candidates {
		if c.Category != category {
			out = append(out, c)
		}
	}
	return out
}

var questionLead = regexp.MustCompile(
	`^(what|how|when|where|why|who|which|can|could|would|should|is|are|do|does|did|will|may|might)\b`)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// Normalize lower-cases a message, folds typographic apostrophes and
// collapses whitespace runs.
func Normalize(message string) string {
	message = apostrophes.Replace(strings.ToLower(message))
	return strings.Join(strings.Fields(message), " ")
}

// IsQuestion reports whether the message opens with a question-leading word.
func IsQuestion(message string) bool {
	return questionLead.MatchString(Normalize(message))
}

type pattern struct {
	category   string
	value      string
	exact      *regexp.Regexp
	standalone *regexp.Regexp
	words      []*regexp.Regexp
}

// Matcher holds precompiled patterns for every matchable value of a taxonomy.
// It is immutable and safe for concurrent use.
type Matcher struct {
	patterns []pattern
}

// New compiles patterns for every non-sentinel value, in taxonomy order.
func New(tax *taxonomy.Taxonomy) *Matcher {
	m := &Matcher{}
	for _, c := range tax.Categories() {
		for _, v := range c.Values {
			m.patterns = append(m.patterns, compile(c.Name, v))
		}
	}
	return m
}

func compile(category, value string) pattern {
	words := strings.Fields(value)
	quoted := make([]string, len(words))
	wordRes := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
		wordRes[i] = regexp.MustCompile(`\b` + quoted[i] + `\b`)
	}

	return pattern{
		category:   category,
		value:      value,
		exact:      regexp.MustCompile(`\b` + strings.Join(quoted, `\s+`) + `\b`),
		standalone: regexp.MustCompile(`(^|[^a-z])` + regexp.QuoteMeta(value) + `([^a-z]|$)`),
		words:      wordRes,
	}
}

func (p pattern) score(normalized string, question bool) Confidence {
	var c Confidence
	switch {
	case p.exact.MatchString(normalized):
		c = Exact
	case p.standalone.MatchString(normalized):
		c = Standalone
	case p.allWords(normalized):
		c = AllWords
	}
	if question && c < Standalone {
		return None
	}
	return c
}

func (p pattern) allWords(normalized string) bool {
	for _, w := range p.words {
		if !w.MatchString(normalized) {
			return false
		}
	}
	return len(p.words) > 0
}

// Match scores message against every value and returns the ranked candidates.
func (m *Matcher) Match(message string) Result {
	normalized := Normalize(message)
	question := questionLead.MatchString(normalized)

	raw := make([]Candidate, 0, 4)
	for _, p := range m.patterns {
		if c := p.score(normalized, question); c > None {
			raw = append(raw, Candidate{Category: p.category, Value: p.value, Confidence: c})
		}
	}

	return Result{IsQuestion: question, Candidates: Rank(raw)}
}

// Score returns the confidence of a single category value for message, after
// question suppression. Unknown values score None.
func (m *Matcher) Score(message, category, value string) Confidence {
	normalized := Normalize(message)
	question := questionLead.MatchString(normalized)
	for _, p := range m.patterns {
		if p.category == category && p.value == value {
			return p.score(normalized, question)
		}
	}
	return None
}
