// Package eval implements the metric functions and dataset-scoring
// engine of spec §4.I.
package eval

import "strings"

// Example is a normalized dataset entry: canonical {input, expected}
// shape regardless of the source dataset's field names.
type Example struct {
	Input    map[string]any
	Expected map[string]any
}

// Metric scores a module's actual output against an example's expected
// output, returning a real in [0, 1].
type Metric func(actual, expected map[string]any) float64

// ExactMatch is 1.0 iff actual.answer equals expected.answer after
// trim + lower-case; else 0.0.
func ExactMatch(actual, expected map[string]any) float64 {
	a := normalizeString(actual["answer"])
	e := normalizeString(expected["answer"])
	if a == e {
		return 1.0
	}
	return 0.0
}

// PassageMatch is 1.0 iff actual.answer is a substring of
// expected.passage or expected.context; else 0.0.
func PassageMatch(actual, expected map[string]any) float64 {
	a := normalizeString(actual["answer"])
	if a == "" {
		return 0.0
	}
	for _, key := range []string{"passage", "context"} {
		if p := normalizeString(expected[key]); p != "" && strings.Contains(p, a) {
			return 1.0
		}
	}
	return 0.0
}

// SemanticF1 is declared by spec §4.I but not required beyond a
// placeholder. TODO: replace with an embedding- or token-overlap-based
// F1 once an embedding backend is wired; for now it falls back to
// ExactMatch, per the spec's own permitted initial implementation.
func SemanticF1(actual, expected map[string]any) float64 {
	return ExactMatch(actual, expected)
}

func normalizeString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// builtins mirrors signature.Registry's name-keyed lookup pattern for
// the three built-in metrics, so callers can select one by name (e.g.
// from config) the same way they select a compile strategy.
var builtins = map[string]Metric{
	"exact_match":   ExactMatch,
	"passage_match": PassageMatch,
	"semantic_f1":   SemanticF1,
}

// Lookup returns a built-in metric by name.
func Lookup(name string) (Metric, bool) {
	m, ok := builtins[name]
	return m, ok
}
