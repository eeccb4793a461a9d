// Package typeformat coerces resolved raw values to their declared semantic
// types. Descriptor values are duck-typed JSON (strings, numbers, nulls), so
// they are modeled as a small tagged union and converted strictly through the
// declared format tag rather than guessed.
package typeformat

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/c-hydro/shybox/internal/timeseq"
	"github.com/c-hydro/shybox/pkg/model"
)

// Kind tags the runtime type of a raw descriptor value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindTimestamp
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// KindOf classifies a raw value decoded from a descriptor.
func KindOf(raw any) Kind {
	switch raw.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case int, int64, float64:
		return KindInt
	case time.Time:
		return KindTimestamp
	}
	return KindString
}

// Format converts a resolved raw value to its declared format.
//
//	"string"    — passthrough; null stays null; $HOME and ~ are expanded
//	"int"       — strict integer parse; non-numeric input is a TypeMismatch
//	"timestamp" — the value must already be a concrete date/time; it is
//	              rendered with the strftime template pattern
//
// name is used only for error reporting.
func Format(name string, raw any, format, template string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch format {
	case "", "string":
		return formatString(raw), nil
	case "int":
		return formatInt(name, raw)
	case "timestamp":
		return formatTimestamp(name, raw, template)
	}
	return nil, model.ErrTypeMismatch(name, format, raw)
}

func formatString(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return fmt.Sprintf("%v", raw)
	}
	return ExpandHome(s)
}

func formatInt(name string, raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, model.ErrTypeMismatch(name, "int", raw)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, model.ErrTypeMismatch(name, "int", raw)
		}
		return n, nil
	}
	return nil, model.ErrTypeMismatch(name, "int", raw)
}

func formatTimestamp(name string, raw any, template string) (any, error) {
	if template == "" {
		return nil, model.ErrInvalidTimestamp(name, fmt.Errorf("no template pattern declared"))
	}
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		var err error
		if t, err = timeseq.ParseTimestamp(v); err != nil {
			return nil, model.ErrInvalidTimestamp(name, err)
		}
	default:
		return nil, model.ErrInvalidTimestamp(name, fmt.Errorf("expected date/time, got %T", raw))
	}
	return strftime.Format(template, t), nil
}

// ExpandHome substitutes $HOME and a leading ~ with the user home directory.
func ExpandHome(s string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return s
	}
	if strings.Contains(s, "$HOME") {
		s = strings.ReplaceAll(s, "$HOME", home)
	}
	if s == "~" || strings.HasPrefix(s, "~/") {
		s = home + strings.TrimPrefix(s, "~")
	}
	return s
}
