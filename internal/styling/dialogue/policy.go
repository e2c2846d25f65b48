package dialogue

import (
	"fmt"
	"strings"

	"styling-assistant/internal/styling/matcher"
	"styling-assistant/internal/styling/taxonomy"
)

// FollowupOrder is the order categories are asked about once the occasion
// is known. Categories not listed are only filled by explicit selection.
var FollowupOrder = []string{
	taxonomy.Weather,
	taxonomy.MaterialPreference,
	taxonomy.FitPreference,
	taxonomy.TimeOfDay,
	taxonomy.Season,
	taxonomy.ColorPreference,
	taxonomy.Budget,
	taxonomy.PersonalStyle,
}

// TieBreak picks one candidate when a message matches several values of the
// pending category or several occasions. Candidates arrive ranked and
// non-empty.
type TieBreak func(candidates []matcher.Candidate) matcher.Candidate

// HighestRankedFirst takes the first candidate after ranking: highest
// confidence, then taxonomy order.
func HighestRankedFirst(candidates []matcher.Candidate) matcher.Candidate {
	return candidates[0]
}

// Option is a value offered to the user for explicit selection.
type Option struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

const (
	genericConfirmation = "Got it, {value} for your {label}."
	genericQuestion     = "What would you like for {label}?"

	completeNotice      = "That's everything I need. Putting together %s for you now."
	alreadyComplete     = "Your request is complete. Start a new conversation to change your answers."
	handoffAccepted     = "Your outfit request is on its way (reference %s)."
	handoffFailed       = "I couldn't reach the outfit recommender just now. Your answers are saved, so you can retry without starting over."
	questionGuidance    = "Good question! I can help best once I know what you're dressing for."
	statementGuidance   = "I couldn't pick out an occasion from that. What are you dressing for?"
	pendingQuestionLead = "Good question! First, "
	pendingRetryLead    = "Sorry, I didn't catch that. "
)

func render(template string, c taxonomy.Category, value string) string {
	return strings.NewReplacer("{value}", value, "{label}", c.DisplayLabel()).Replace(template)
}

func confirmationFor(c taxonomy.Category, value string) string {
	tmpl := c.Confirmation
	if tmpl == "" {
		tmpl = genericConfirmation
	}
	return render(tmpl, c, value)
}

func questionFor(c taxonomy.Category) string {
	if c.Question != "" {
		return c.Question
	}
	return render(genericQuestion, c, "")
}

func outfitPhrase(n int) string {
	if n == 1 {
		return "1 outfit"
	}
	return fmt.Sprintf("%d outfits", n)
}

func describeOptions(options []Option, tax *taxonomy.Taxonomy) string {
	parts := make([]string, len(options))
	for i, o := range options {
		c, _ := tax.Category(o.Category)
		parts[i] = fmt.Sprintf("%s (%s)", o.Value, c.DisplayLabel())
	}
	return "Did you mean one of these? " + strings.Join(parts, ", ")
}

func describeMenu(c taxonomy.Category, values []string) string {
	return fmt.Sprintf("Pick a %s: %s", c.DisplayLabel(), strings.Join(values, ", "))
}
