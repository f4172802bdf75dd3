/*
Package factory converts configuration documents into planning types.

PURPOSE:
  Constraint sets and whole planning snapshots can be written by hand as
  JSON or YAML (preset files, CLI input, API payloads). The factory parses
  those documents, applies defaults, and builds validated planning values.

WHY DECIMAL HOURS?
  People think in "7.5 hours a day", not in minutes. Hours are decoded as
  shopspring decimals so 7.5 stays exactly 7h30 and is never subject to
  float rounding.

CONSTRAINTS SCHEMA:
  {
    "max_hours_per_day": 8,
    "work_start": "08:00",
    "work_end": "22:00",
    "exclude_sunday": true,
    "lunch": {"start": "12:00", "end": "13:00"},
    "min_block_hours": 0.5
  }

  The same document in YAML:
    max_hours_per_day: 7.5
    work_start: "09:00"
    work_end: "18:00"
    lunch: {start: "12:30", end: "13:30"}

  Omitted fields take the values of planning.DefaultConstraints().
  "lunch": null disables the lunch break.

USAGE:
  f := factory.NewConstraintFactory()
  c, err := f.Parse(data)            // JSON or YAML
  c, err = f.Preset("office")
  doc := f.ToJSON(c)

SEE ALSO:
  - planning/constraints.go: ConstraintSet
  - factory/snapshot.go: snapshot documents
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/task-planner/planning"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// ConstraintsJSON is the document form of a ConstraintSet. Pointer fields
// distinguish "absent" from zero.
type ConstraintsJSON struct {
	MaxHoursPerDay *decimal.Decimal `json:"max_hours_per_day,omitempty" yaml:"max_hours_per_day,omitempty"`
	WorkStart      string           `json:"work_start,omitempty" yaml:"work_start,omitempty"`
	WorkEnd        string           `json:"work_end,omitempty" yaml:"work_end,omitempty"`
	ExcludeSunday  *bool            `json:"exclude_sunday,omitempty" yaml:"exclude_sunday,omitempty"`
	Lunch          *WindowJSON      `json:"lunch" yaml:"lunch"`
	MinBlockHours  *decimal.Decimal `json:"min_block_hours,omitempty" yaml:"min_block_hours,omitempty"`

	// lunchSet records whether the document mentioned "lunch" at all,
	// so an explicit null can disable the default break.
	lunchSet bool
}

// WindowJSON is a clock-time range.
type WindowJSON struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// UnmarshalJSON tracks whether "lunch" was present.
func (cj *ConstraintsJSON) UnmarshalJSON(data []byte) error {
	type plain ConstraintsJSON
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode((*plain)(cj)); err != nil {
		return err
	}
	_, cj.lunchSet = raw["lunch"]
	return nil
}

// UnmarshalYAML tracks whether "lunch" was present.
func (cj *ConstraintsJSON) UnmarshalYAML(node *yaml.Node) error {
	type plain ConstraintsJSON
	if err := node.Decode((*plain)(cj)); err != nil {
		return err
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "lunch" {
				cj.lunchSet = true
			}
		}
	}
	return nil
}

// =============================================================================
// CONSTRAINT FACTORY
// =============================================================================

// ConstraintFactory converts constraint documents to planning.ConstraintSet.
type ConstraintFactory struct{}

// NewConstraintFactory creates a new constraint factory.
func NewConstraintFactory() *ConstraintFactory {
	return &ConstraintFactory{}
}

// Parse decodes a JSON or YAML document and builds a validated set.
func (f *ConstraintFactory) Parse(data []byte) (planning.ConstraintSet, error) {
	var cj ConstraintsJSON
	if err := decode(data, &cj); err != nil {
		return planning.ConstraintSet{}, fmt.Errorf("failed to parse constraints: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON builds a ConstraintSet on top of the defaults and validates it.
func (f *ConstraintFactory) FromJSON(cj ConstraintsJSON) (planning.ConstraintSet, error) {
	c := planning.DefaultConstraints()

	if cj.MaxHoursPerDay != nil {
		c.MaxPerDay = planning.FromHours(*cj.MaxHoursPerDay)
	}
	if cj.WorkStart != "" {
		clock, err := planning.ParseClock(cj.WorkStart)
		if err != nil {
			return planning.ConstraintSet{}, fieldError("work_start", cj.WorkStart, err)
		}
		c.WorkStart = clock
	}
	if cj.WorkEnd != "" {
		clock, err := planning.ParseClock(cj.WorkEnd)
		if err != nil {
			return planning.ConstraintSet{}, fieldError("work_end", cj.WorkEnd, err)
		}
		c.WorkEnd = clock
	}
	if cj.ExcludeSunday != nil {
		c.ExcludeSunday = *cj.ExcludeSunday
	}
	if cj.Lunch != nil {
		lunch, err := parseWindow(*cj.Lunch)
		if err != nil {
			return planning.ConstraintSet{}, err
		}
		c.Lunch = &lunch
	} else if cj.lunchSet {
		c.Lunch = nil
	}
	if cj.MinBlockHours != nil {
		c.MinBlock = planning.FromHours(*cj.MinBlockHours)
	}

	if err := c.Validate(); err != nil {
		return planning.ConstraintSet{}, err
	}
	return c, nil
}

// ToJSON converts a ConstraintSet to its document form. Every field is set.
func (f *ConstraintFactory) ToJSON(c planning.ConstraintSet) ConstraintsJSON {
	maxHours := planning.Hours(c.MaxPerDay)
	minBlock := planning.Hours(c.MinBlock)
	excludeSunday := c.ExcludeSunday

	cj := ConstraintsJSON{
		MaxHoursPerDay: &maxHours,
		WorkStart:      c.WorkStart.String(),
		WorkEnd:        c.WorkEnd.String(),
		ExcludeSunday:  &excludeSunday,
		MinBlockHours:  &minBlock,
		lunchSet:       true,
	}
	if c.Lunch != nil {
		cj.Lunch = &WindowJSON{Start: c.Lunch.Start.String(), End: c.Lunch.End.String()}
	}
	return cj
}

// =============================================================================
// PRESETS
// =============================================================================

var presets = map[string]func() planning.ConstraintSet{
	"default": planning.DefaultConstraints,
	"office":  Office,
	"student": Student,
}

// Office is a 9-to-6 week: 7h a day, lunch 12:30-13:30, no Sundays.
func Office() planning.ConstraintSet {
	return planning.ConstraintSet{
		MaxPerDay:     7 * time.Hour,
		WorkStart:     planning.NewClock(9, 0),
		WorkEnd:       planning.NewClock(18, 0),
		ExcludeSunday: true,
		Lunch:         &planning.Window{Start: planning.NewClock(12, 30), End: planning.NewClock(13, 30)},
		MinBlock:      30 * time.Minute,
	}
}

// Student works late and on Sundays, with shorter days.
func Student() planning.ConstraintSet {
	return planning.ConstraintSet{
		MaxPerDay: 6 * time.Hour,
		WorkStart: planning.NewClock(10, 0),
		WorkEnd:   planning.NewClock(23, 0),
		Lunch:     &planning.Window{Start: planning.NewClock(12, 30), End: planning.NewClock(13, 30)},
		MinBlock:  45 * time.Minute,
	}
}

// Preset returns a named constraint set.
func (f *ConstraintFactory) Preset(name string) (planning.ConstraintSet, error) {
	build, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return planning.ConstraintSet{}, fmt.Errorf("unknown constraints preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return build(), nil
}

// PresetNames lists the available presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// decode accepts JSON (leading '{') or YAML.
func decode(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	}
	return yaml.Unmarshal(trimmed, out)
}

func parseWindow(wj WindowJSON) (planning.Window, error) {
	start, err := planning.ParseClock(wj.Start)
	if err != nil {
		return planning.Window{}, fieldError("lunch.start", wj.Start, err)
	}
	end, err := planning.ParseClock(wj.End)
	if err != nil {
		return planning.Window{}, fieldError("lunch.end", wj.End, err)
	}
	return planning.Window{Start: start, End: end}, nil
}

func fieldError(field string, value any, err error) error {
	return &planning.ValidationError{
		Kind:    planning.ErrInvalidConstraints,
		Field:   field,
		Value:   value,
		Message: err.Error(),
	}
}
