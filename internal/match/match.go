// Package match picks the SWAPI record that best corresponds to a databank name.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind reports which rule produced a match.
type Kind int

const (
	None Kind = iota
	Exact
	Partial
	Fallback
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Partial:
		return "partial"
	case Fallback:
		return "fallback"
	default:
		return "none"
	}
}

// Options controls matching.
type Options struct {
	// Fallback returns the first candidate when neither the exact nor the
	// partial rule matches.
	Fallback bool
}

// Best returns the candidate whose name best matches target.
//
// Rules, first hit wins: exact match after folding, then substring in
// either direction, then (with Options.Fallback) the first candidate.
// A target that folds to nothing never matches. The bool is false only when
// nothing was selected.
func Best[T any](target string, candidates []T, nameOf func(T) string, opts Options) (T, Kind, bool) {
	var zero T
	if len(candidates) == 0 {
		return zero, None, false
	}

	// Blank targets never match, not even by fallback.
	want := Fold(target)
	if want == "" {
		return zero, None, false
	}

	folded := make([]string, len(candidates))
	for i, c := range candidates {
		folded[i] = Fold(nameOf(c))
	}

	for i, name := range folded {
		if name == want {
			return candidates[i], Exact, true
		}
	}

	for i, name := range folded {
		if name == "" {
			continue
		}
		if strings.Contains(name, want) || strings.Contains(want, name) {
			return candidates[i], Partial, true
		}
	}

	if opts.Fallback {
		return candidates[0], Fallback, true
	}
	return zero, None, false
}

// Fold normalizes a name for comparison: compatibility decomposition,
// diacritics removed, case folded, whitespace runs collapsed.
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)
	return strings.Join(strings.Fields(out), " ")
}
