// Package taxonomy holds the attribute catalog the styling assistant fills
// a recommendation request from.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifiers. The catalog must define exactly these ten.
const (
	Occasion           = "occasion"
	Weather            = "weather"
	OutfitStyle        = "outfit_style"
	ColorPreference    = "color_preference"
	FitPreference      = "fit_preference"
	MaterialPreference = "material_preference"
	Season             = "season"
	TimeOfDay          = "time_of_day"
	Budget             = "budget"
	PersonalStyle      = "personal_style"
)

// RequiredCategories lists the category identifiers every taxonomy carries.
var RequiredCategories = []string{
	Occasion, Weather, OutfitStyle, ColorPreference, FitPreference,
	MaterialPreference, Season, TimeOfDay, Budget, PersonalStyle,
}

var (
	ErrInvalidTaxonomy = errors.New("TAXONOMY_INVALID")
	ErrUnknownCategory = errors.New("UNKNOWN_CATEGORY")
)

// Category is one attribute slot and its permitted tokens.
type Category struct {
	Name   string   `json:"name"`
	Label  string   `json:"label,omitempty"`
	Values []string `json:"values"`
	// Sentinel is the "unset" token. It is permitted as a slot value but never matched.
	Sentinel string `json:"sentinel"`
	// Default is the initial slot value; either Sentinel or one of Values.
	Default string `json:"default,omitempty"`
	// Question is asked when the category is pending; Confirmation acknowledges an
	// applied value and may use the {value} and {label} placeholders.
	Question     string `json:"question,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
}

// DisplayLabel falls back to the identifier with underscores spaced out.
func (c Category) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return strings.ReplaceAll(c.Name, "_", " ")
}

// Taxonomy is an immutable, ordered catalog of categories.
type Taxonomy struct {
	version    string
	categories []Category
	index      map[string]int
}

// New validates categories and builds a Taxonomy. Values are lower-cased and
// trimmed; the caller's slices are not retained.
func New(version string, categories []Category) (*Taxonomy, error) {
	t := &Taxonomy{
		version:    version,
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
	}

	for _, c := range categories {
		c.Name = strings.TrimSpace(c.Name)
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidTaxonomy, c.Name)
		}

		values := make([]string, 0, len(c.Values))
		seen := make(map[string]bool, len(c.Values))
		for _, v := range c.Values {
			v = normalizeToken(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: category %q has no values", ErrInvalidTaxonomy, c.Name)
		}
		c.Values = values

		c.Sentinel = strings.TrimSpace(c.Sentinel)
		if c.Sentinel == "" {
			return nil, fmt.Errorf("%w: category %q has no sentinel", ErrInvalidTaxonomy, c.Name)
		}
		if seen[normalizeToken(c.Sentinel)] {
			return nil, fmt.Errorf("%w: sentinel %q of %q is also a value", ErrInvalidTaxonomy, c.Sentinel, c.Name)
		}

		if c.Default == "" {
			c.Default = c.Sentinel
		} else if c.Default != c.Sentinel {
			c.Default = normalizeToken(c.Default)
			if !seen[c.Default] {
				return nil, fmt.Errorf("%w: default %q of %q is not permitted", ErrInvalidTaxonomy, c.Default, c.Name)
			}
		}

		t.index[c.Name] = len(t.categories)
		t.categories = append(t.categories, c)
	}

	for _, name := range RequiredCategories {
		if _, ok := t.index[name]; !ok {
			return nil, fmt.Errorf("%w: missing category %q", ErrInvalidTaxonomy, name)
		}
	}
	if len(t.categories) != len(RequiredCategories) {
		return nil, fmt.Errorf("%w: expected %d categories, got %d",
			ErrInvalidTaxonomy, len(RequiredCategories), len(t.categories))
	}

	return t, nil
}

func normalizeToken(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}

func (t *Taxonomy) Version() string { return t.version }

// Categories returns the categories in catalog order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		c.Values = append([]string(nil), c.Values...)
		out[i] = c
	}
	return out
}

// Names returns the category identifiers in catalog order.
func (t *Taxonomy) Names() []string {
	out := make([]string, len(t.categories))
	for i, c := range t.categories {
		out[i] = c.Name
	}
	return out
}

// Category looks a category up by identifier.
func (t *Taxonomy) Category(name string) (Category, bool) {
	i, ok := t.index[name]
	if !ok {
		return Category{}, false
	}
	c := t.categories[i]
	c.Values = append([]string(nil), c.Values...)
	return c, true
}

// ValuesOf returns the matchable values of a category, sentinel excluded.
func (t *Taxonomy) ValuesOf(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	return append([]string(nil), t.categories[i].Values...), nil
}

// IsSentinel reports whether token is the category's unset sentinel.
func (t *Taxonomy) IsSentinel(name, token string) bool {
	i, ok := t.index[name]
	return ok && t.categories[i].Sentinel == token
}

// Permits reports whether token may be stored in the category's slot.
func (t *Taxonomy) Permits(name, token string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	c := t.categories[i]
	if token == c.Sentinel {
		return true
	}
	for _, v := range c.Values {
		if v == token {
			return true
		}
	}
	return false
}

// IsValue reports whether token is a matchable (non-sentinel) value of the category.
func (t *Taxonomy) IsValue(name, token string) bool {
	return t.Permits(name, token) && !t.IsSentinel(name, token)
}

// DefaultOf returns the initial slot value of a category.
func (t *Taxonomy) DefaultOf(name string) string {
	i, ok := t.index[name]
	if !ok {
		return ""
	}
	return t.categories[i].Default
}

// Defaults returns a fresh slot map with every category at its default.
func (t *Taxonomy) Defaults() map[string]string {
	out := make(map[string]string, len(t.categories))
	for _, c := range t.categories {
		out[c.Name] = c.Default
	}
	return out
}
