// Package timeseq generates the ordered run-timestamp sequence from a
// descriptor time specification: bounded stepping between start and end, or
// a fixed number of periods, with per-unit rounding and optional backward
// iteration. Generation is a pure function of the spec.
package timeseq

import (
	"fmt"
	"strings"
	"time"

	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

// Unit is a time step unit.
type Unit int

const (
	UnitMinute Unit = iota
	UnitHour
	UnitDay
)

// String returns the canonical unit name.
func (u Unit) String() string {
	switch u {
	case UnitMinute:
		return "minute"
	case UnitHour:
		return "hour"
	case UnitDay:
		return "day"
	}
	return "unknown"
}

// Short returns the descriptor spelling of the unit.
func (u Unit) Short() string {
	switch u {
	case UnitMinute:
		return "min"
	case UnitHour:
		return "h"
	case UnitDay:
		return "d"
	}
	return ""
}

// Seconds returns the step length in seconds, the unit used by namelist
// time-resolution fields.
func (u Unit) Seconds() int {
	switch u {
	case UnitMinute:
		return 60
	case UnitHour:
		return 3600
	case UnitDay:
		return 86400
	}
	return 0
}

// ParseUnit accepts the frequency/rounding spellings found in descriptors:
// pandas-style single letters ("min", "h", "D") and full names.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "min", "t", "minute", "minutes":
		return UnitMinute, nil
	case "h", "hour", "hours", "":
		// Hourly is the descriptor default.
		return UnitHour, nil
	case "d", "day", "days":
		return UnitDay, nil
	}
	return 0, model.ErrInvalidTimeSpec(fmt.Sprintf("unknown time unit %q", s))
}

// Direction selects the iteration order of the generated sequence.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// ParseDirection parses a descriptor direction value; empty means forward.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	}
	return 0, model.ErrInvalidTimeSpec(fmt.Sprintf("unknown direction %q", s))
}

// Spec is the normalized time specification.
type Spec struct {
	Start     *time.Time
	End       *time.Time
	Period    int
	Frequency Unit
	Rounding  Unit
	Shift     int
	Direction Direction
}

// timestampLayouts are the concrete date/time spellings accepted in
// descriptor documents and command lines.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"200601021504",
	"20060102150405",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp parses a concrete timestamp in any accepted layout.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// FromBlock normalizes a descriptor time block. Start and End values that
// are null or still carry a brace placeholder are left open; an open bound
// is supplied later via WithStart/WithEnd once variable resolution has
// produced a concrete value.
func FromBlock(tb descriptor.TimeBlock) (Spec, error) {
	freq, err := ParseUnit(tb.Frequency)
	if err != nil {
		return Spec{}, err
	}
	rounding := freq
	if tb.Rounding != "" {
		if rounding, err = ParseUnit(tb.Rounding); err != nil {
			return Spec{}, err
		}
	}
	dir, err := ParseDirection(tb.Direction)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		Period:    tb.Period,
		Frequency: freq,
		Rounding:  rounding,
		Shift:     tb.Shift,
		Direction: dir,
	}
	if spec.Start, err = parseBound(tb.Start, "time.start"); err != nil {
		return Spec{}, err
	}
	if spec.End, err = parseBound(tb.End, "time.end"); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func parseBound(v any, field string) (*time.Time, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case string:
		if b == "" || strings.Contains(b, "{") {
			// Placeholder bound, deferred until resolution.
			return nil, nil
		}
		t, err := ParseTimestamp(b)
		if err != nil {
			return nil, model.ErrInvalidTimeSpec(fmt.Sprintf("%s: %v", field, err))
		}
		return &t, nil
	}
	return nil, model.ErrInvalidTimeSpec(fmt.Sprintf("%s: expected string or null, got %T", field, v))
}

// WithStart returns a copy of the spec with a concrete start bound.
func (s Spec) WithStart(t time.Time) Spec {
	s.Start = &t
	return s
}

// WithEnd returns a copy of the spec with a concrete end bound. Generation
// is re-entrant: a spec whose end was deferred on a {time_end} placeholder
// can be completed and generated after partial variable resolution.
func (s Spec) WithEnd(t time.Time) Spec {
	s.End = &t
	return s
}

// Round floors t to the spec's rounding unit.
func (s Spec) Round(t time.Time) time.Time {
	switch s.Rounding {
	case UnitMinute:
		return t.Truncate(time.Minute)
	case UnitHour:
		return t.Truncate(time.Hour)
	case UnitDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return t
}

func (s Spec) step(t time.Time, n int) time.Time {
	switch s.Frequency {
	case UnitMinute:
		return t.Add(time.Duration(n) * time.Minute)
	case UnitHour:
		return t.Add(time.Duration(n) * time.Hour)
	case UnitDay:
		return t.AddDate(0, 0, n)
	}
	return t
}

// Generate produces the ordered, finite run-timestamp sequence.
//
// With both bounds concrete the sequence steps inclusively from start to end
// (or end to start when backward). With a period instead of an end bound it
// produces exactly Period steps from start. An empty range (start after end,
// forward) yields an empty sequence, not an error.
func (s Spec) Generate() ([]time.Time, error) {
	if s.finer(s.Frequency, s.Rounding) {
		return nil, model.ErrInvalidTimeSpec(fmt.Sprintf(
			"frequency %s is finer than rounding %s", s.Frequency, s.Rounding))
	}
	if s.Start == nil {
		return nil, model.ErrInvalidTimeSpec("start bound is not concrete")
	}
	start := s.Round(*s.Start)

	if s.End != nil {
		end := s.Round(*s.End)
		if s.Direction == Forward {
			if start.After(end) {
				return nil, nil
			}
			var out []time.Time
			for t := start; !t.After(end); t = s.step(t, 1) {
				out = append(out, t)
			}
			return out, nil
		}
		if end.Before(start) {
			return nil, nil
		}
		var out []time.Time
		for t := end; !t.Before(start); t = s.step(t, -1) {
			out = append(out, t)
		}
		return out, nil
	}

	period := s.Period
	if period <= 0 {
		period = 1
	}
	out := make([]time.Time, 0, period)
	dir := 1
	if s.Direction == Backward {
		dir = -1
	}
	for i := 0; i < period; i++ {
		out = append(out, s.step(start, i*dir))
	}
	return out, nil
}

// Restart returns the restart timestamp for t: t shifted back Shift
// frequency steps (one step when no shift is declared).
func (s Spec) Restart(t time.Time) time.Time {
	shift := s.Shift
	if shift <= 0 {
		shift = 1
	}
	return s.step(s.Round(t), -shift)
}

// finer reports whether a is a smaller unit than b.
func (s Spec) finer(a, b Unit) bool {
	return a < b
}
