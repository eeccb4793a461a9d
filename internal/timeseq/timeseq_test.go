package timeseq

import (
	"testing"
	"time"

	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := ParseTimestamp(s)
	if err != nil {
		t.Fatalf("ParseTimestamp(%q): %v", s, err)
	}
	return ts
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"min", UnitMinute, false},
		{"T", UnitMinute, false},
		{"h", UnitHour, false},
		{"Hour", UnitHour, false},
		{"", UnitHour, false},
		{"D", UnitDay, false},
		{"days", UnitDay, false},
		{"fortnight", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseUnit(%q): expected error", tt.in)
			} else if model.KindOf(err) != model.KindInvalidTimeSpec {
				t.Errorf("ParseUnit(%q): kind = %v, want INVALID_TIME_SPEC", tt.in, model.KindOf(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUnit(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUnit(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnitSeconds(t *testing.T) {
	if got := UnitMinute.Seconds(); got != 60 {
		t.Errorf("minute = %d, want 60", got)
	}
	if got := UnitHour.Seconds(); got != 3600 {
		t.Errorf("hour = %d, want 3600", got)
	}
	if got := UnitDay.Seconds(); got != 86400 {
		t.Errorf("day = %d, want 86400", got)
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-01-01 06:00", "202501010600", "2025-01-01T06:00:00"} {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseTimestamp("not-a-time"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestGenerate_BoundedDaily(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 00:00",
		End:       "2025-01-05 00:00",
		Frequency: "D",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	seq, err := spec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(seq) != 5 {
		t.Fatalf("len = %d, want 5 (inclusive bounds)", len(seq))
	}
	if !seq[0].Equal(mustTime(t, "2025-01-01 00:00")) {
		t.Errorf("first = %v", seq[0])
	}
	if !seq[4].Equal(mustTime(t, "2025-01-05 00:00")) {
		t.Errorf("last = %v", seq[4])
	}
	for i := 1; i < len(seq); i++ {
		if !seq[i].After(seq[i-1]) {
			t.Errorf("sequence not strictly increasing at %d", i)
		}
		if seq[i].Sub(seq[i-1]) != 24*time.Hour {
			t.Errorf("step %d = %v, want 24h", i, seq[i].Sub(seq[i-1]))
		}
	}
}

func TestGenerate_RoundingFloorsStart(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 06:37",
		Period:    3,
		Frequency: "h",
		Rounding:  "h",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	seq, err := spec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !seq[0].Equal(mustTime(t, "2025-01-01 06:00")) {
		t.Errorf("start not floored to hour: %v", seq[0])
	}
}

func TestGenerate_PeriodLength(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 00:00",
		Period:    4,
		Frequency: "h",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	seq, err := spec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(seq) != 4 {
		t.Fatalf("len = %d, want Period", len(seq))
	}
}

func TestGenerate_PeriodDefaultsToOne(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 00:00",
		Frequency: "h",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	seq, err := spec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(seq) != 1 {
		t.Fatalf("len = %d, want 1", len(seq))
	}
}

func TestGenerate_Backward(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 00:00",
		End:       "2025-01-01 03:00",
		Frequency: "h",
		Direction: "backward",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	seq, err := spec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(seq) != 4 {
		t.Fatalf("len = %d, want 4", len(seq))
	}
	if !seq[0].Equal(mustTime(t, "2025-01-01 03:00")) || !seq[3].Equal(mustTime(t, "2025-01-01 00:00")) {
		t.Errorf("backward order wrong: first %v, last %v", seq[0], seq[3])
	}
}

func TestGenerate_EmptyRange(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-02-01 00:00",
		End:       "2025-01-01 00:00",
		Frequency: "D",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	seq, err := spec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(seq) != 0 {
		t.Fatalf("len = %d, want empty sequence for start after end", len(seq))
	}
}

func TestGenerate_FrequencyFinerThanRounding(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 00:00",
		Period:    2,
		Frequency: "min",
		Rounding:  "h",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	_, err = spec.Generate()
	if model.KindOf(err) != model.KindInvalidTimeSpec {
		t.Fatalf("kind = %v, want INVALID_TIME_SPEC", model.KindOf(err))
	}
}

func TestFromBlock_DeferredBounds(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "{time_start}",
		End:       nil,
		Period:    2,
		Frequency: "h",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	if spec.Start != nil || spec.End != nil {
		t.Fatal("placeholder bounds should stay open")
	}
	if _, err := spec.Generate(); model.KindOf(err) != model.KindInvalidTimeSpec {
		t.Fatalf("generate without start: kind = %v, want INVALID_TIME_SPEC", model.KindOf(err))
	}

	// Re-entrant completion.
	seq, err := spec.WithStart(mustTime(t, "2025-01-01 00:00")).Generate()
	if err != nil {
		t.Fatalf("Generate after WithStart: %v", err)
	}
	if len(seq) != 2 {
		t.Fatalf("len = %d, want 2", len(seq))
	}
}

func TestRestart(t *testing.T) {
	spec, err := FromBlock(descriptor.TimeBlock{
		Start:     "2025-01-01 06:00",
		Period:    1,
		Frequency: "h",
	})
	if err != nil {
		t.Fatalf("FromBlock: %v", err)
	}
	if got := spec.Restart(mustTime(t, "2025-01-01 06:00")); !got.Equal(mustTime(t, "2025-01-01 05:00")) {
		t.Errorf("default restart = %v, want one step back", got)
	}

	spec.Shift = 3
	if got := spec.Restart(mustTime(t, "2025-01-01 06:00")); !got.Equal(mustTime(t, "2025-01-01 03:00")) {
		t.Errorf("shifted restart = %v, want 03:00", got)
	}
}
