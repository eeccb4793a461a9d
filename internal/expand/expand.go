// Package expand substitutes resolved variables into template strings using
// the two descriptor grammars: brace placeholders ({name}) for
// descriptor-internal reuse, and date tokens ($yyyy, $mm, $dd or embedded
// strftime sequences) for date-stamped paths and namelist date fields.
// Both passes are pure and idempotent.
package expand

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/c-hydro/shybox/pkg/model"
)

// MaxDepth bounds chained brace references (a path referencing {path_app}
// which itself holds a placeholder). Exceeding it is an error, never a spin.
const MaxDepth = 5

var bracePattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Braces replaces every {name} occurrence with the formatted value of name,
// repeating until no braces remain. Unknown names and reference chains
// deeper than MaxDepth fail.
func Braces(s string, vars map[string]any) (string, error) {
	for depth := 0; bracePattern.MatchString(s); depth++ {
		if depth >= MaxDepth {
			name := ""
			if m := bracePattern.FindStringSubmatch(s); m != nil {
				name = m[1]
			}
			return "", model.ErrPlaceholderDepth(name)
		}
		var expandErr error
		s = bracePattern.ReplaceAllStringFunc(s, func(match string) string {
			if expandErr != nil {
				return match
			}
			name := match[1 : len(match)-1]
			raw, ok := vars[name]
			if !ok {
				expandErr = model.ErrUnknownPlaceholder(name)
				return match
			}
			if raw == nil {
				expandErr = model.ErrUnresolvedVariable(name)
				return match
			}
			return Stringify(raw)
		})
		if expandErr != nil {
			return "", expandErr
		}
	}
	return s, nil
}

// dateTokens maps the literal path tokens to strftime equivalents. Listed
// longest-first so $MM never partially matches inside $mm handling.
var dateTokens = []struct{ token, format string }{
	{"$yyyy", "%Y"},
	{"$MM", "%M"},
	{"$mm", "%m"},
	{"$dd", "%d"},
	{"$HH", "%H"},
}

// DateTokens renders the date tokens and any embedded strftime sequences in
// s using the iteration timestamp t. It is applied only to fields known to
// represent filesystem paths or namelist date fields; a string with no
// tokens passes through unchanged.
func DateTokens(s string, t time.Time) string {
	for _, dt := range dateTokens {
		if strings.Contains(s, dt.token) {
			s = strings.ReplaceAll(s, dt.token, strftime.Format(dt.format, t))
		}
	}
	if strings.Contains(s, "%") {
		s = strftime.Format(s, t)
	}
	return s
}

// References returns the placeholder names occurring in s, in order.
func References(s string) []string {
	var out []string
	for _, m := range bracePattern.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// Stringify renders a resolved value for substitution into a template.
func Stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04")
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprintf("%v", v)
}
