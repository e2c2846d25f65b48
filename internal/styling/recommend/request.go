// Package recommend assembles completed conversations into recommendation
// requests and hands them to the outfit recommendation service.
package recommend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"styling-assistant/internal/styling/taxonomy"
)

var (
	ErrIncompleteRequest  = errors.New("REQUEST_INCOMPLETE")
	ErrInvalidOutfitCount = errors.New("INVALID_OUTFIT_COUNT")
)

// Request is the flattened attribute snapshot of a completed conversation.
// It is a value type; copies never share state.
type Request struct {
	Occasion           string `json:"occasion"`
	Weather            string `json:"weather"`
	OutfitStyle        string `json:"outfitStyle"`
	ColorPreference    string `json:"colorPreference"`
	FitPreference      string `json:"fitPreference"`
	MaterialPreference string `json:"materialPreference"`
	Season             string `json:"season"`
	TimeOfDay          string `json:"timeOfDay"`
	Budget             string `json:"budget"`
	PersonalStyle      string `json:"personalStyle"`
	OutfitCount        int    `json:"outfitCount"`
}

func (r *Request) field(category string) *string {
	switch category {
	case taxonomy.Occasion:
		return &r.Occasion
	case taxonomy.Weather:
		return &r.Weather
	case taxonomy.OutfitStyle:
		return &r.OutfitStyle
	case taxonomy.ColorPreference:
		return &r.ColorPreference
	case taxonomy.FitPreference:
		return &r.FitPreference
	case taxonomy.MaterialPreference:
		return &r.MaterialPreference
	case taxonomy.Season:
		return &r.Season
	case taxonomy.TimeOfDay:
		return &r.TimeOfDay
	case taxonomy.Budget:
		return &r.Budget
	case taxonomy.PersonalStyle:
		return &r.PersonalStyle
	}
	return nil
}

// Assemble snapshots slots into a Request. Every category of tax must hold a
// permitted token; sentinels are allowed.
func Assemble(tax *taxonomy.Taxonomy, slots map[string]string, outfitCount int) (Request, error) {
	var req Request
	if outfitCount < 1 {
		return req, fmt.Errorf("%w: %d", ErrInvalidOutfitCount, outfitCount)
	}

	var problems []string
	for _, name := range tax.Names() {
		value, ok := slots[name]
		switch {
		case !ok:
			problems = append(problems, name+" is missing")
			continue
		case !tax.Permits(name, value):
			problems = append(problems, fmt.Sprintf("%s=%q is not permitted", name, value))
			continue
		}
		if f := req.field(name); f != nil {
			*f = value
		}
	}
	if len(problems) > 0 {
		return Request{}, fmt.Errorf("%w: %s", ErrIncompleteRequest, strings.Join(problems, ", "))
	}

	req.OutfitCount = outfitCount
	return req, nil
}

// Value returns the token held for category, or "" for unknown categories.
func (r Request) Value(category string) string {
	if f := r.field(category); f != nil {
		return *f
	}
	return ""
}

// Values returns a fresh category -> token map.
func (r Request) Values() map[string]string {
	out := make(map[string]string, len(taxonomy.RequiredCategories))
	for _, name := range taxonomy.RequiredCategories {
		out[name] = r.Value(name)
	}
	return out
}

// Unset lists the categories still at their sentinel, sorted.
func (r Request) Unset(tax *taxonomy.Taxonomy) []string {
	var out []string
	for _, name := range tax.Names() {
		if tax.IsSentinel(name, r.Value(name)) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
