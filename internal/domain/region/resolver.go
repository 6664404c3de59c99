package region

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxDistance is the exclusive edit-distance bound for a match.
const MaxDistance = 10

// space matches Unicode whitespace, including the no-break space common in
// upstream text; RE2's \s is ASCII-only.
const space = `[\s\p{Zs}\x{85}\x{2028}\x{2029}]`

// Administrative-unit markers removed before matching, applied in order.
var suffixPatterns = compileMarkers(
	`\s*область\s*`,
	`\s+обл\s*`,
	`\s*край\s*`,
	`\s*республика\s*`,
	`\s+респ\s*`,
	`\s+г\s*`,
	`\s+аобл\s*`,
	`\s+ао\s*`,
	`\s*автономная область\s*`,
	`\s*автономный округ\s*`,
)

func compileMarkers(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(strings.ReplaceAll(p, `\s`, space))
	}
	return out
}

// Clean lowercases s and strips administrative-unit markers.
func Clean(s string) string {
	out := strings.ToLower(s)
	for _, re := range suffixPatterns {
		out = re.ReplaceAllString(out, "")
	}
	return out
}

// Resolver matches free text against a Table. It is safe for concurrent use.
type Resolver struct {
	table *Table
}

// NewResolver returns a resolver over t.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// Match is a resolution result with its edit distance.
type Match struct {
	Entry
	Distance int
}

// Best returns the closest entry to the cleaned input regardless of the
// distance bound. ok is false when the cleaned input is empty or the table is
// empty. On ties the earliest entry wins.
func (r *Resolver) Best(freeText string) (Match, bool) {
	cleaned := Clean(freeText)
	if cleaned == "" || r.table == nil || len(r.table.entries) == 0 {
		return Match{}, false
	}

	best := Match{Distance: -1}
	for _, e := range r.table.entries {
		d := levenshtein.ComputeDistance(e.Name, cleaned)
		if best.Distance < 0 || d < best.Distance {
			best = Match{Entry: e, Distance: d}
		}
	}
	return best, true
}

// Resolve returns the ISO code for freeText, or ok=false when nothing in the
// table is closer than MaxDistance edits.
func (r *Resolver) Resolve(freeText string) (code string, ok bool) {
	m, found := r.Best(freeText)
	if !found || m.Distance >= MaxDistance {
		return "", false
	}
	return m.Code, true
}
