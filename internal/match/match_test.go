package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

type record struct {
	Name string
	ID   int
}

func nameOf(r record) string { return r.Name }

func TestBest(t *testing.T) {
	withFallback := Options{Fallback: true}

	tests := []struct {
		name       string
		target     string
		candidates []record
		opts       Options
		wantID     int
		wantKind   Kind
		wantOK     bool
	}{
		{
			name:       "empty candidates",
			target:     "Yoda",
			candidates: nil,
			opts:       withFallback,
			wantKind:   None,
		},
		{
			name:       "exact beats earlier partial",
			target:     "Luke Skywalker",
			candidates: []record{{"Luke Skywalker Jr", 1}, {"luke skywalker", 2}},
			opts:       withFallback,
			wantID:     2,
			wantKind:   Exact,
			wantOK:     true,
		},
		{
			name:       "candidate contains target",
			target:     "Vader",
			candidates: []record{{"Owen Lars", 1}, {"Darth Vader", 4}},
			opts:       withFallback,
			wantID:     4,
			wantKind:   Partial,
			wantOK:     true,
		},
		{
			name:       "target contains candidate",
			target:     "Obi-Wan Kenobi (Ben)",
			candidates: []record{{"Obi-Wan Kenobi", 10}},
			wantID:     10,
			wantKind:   Partial,
			wantOK:     true,
		},
		{
			name:       "fallback to first",
			target:     "Sy Snootles",
			candidates: []record{{"Jabba Desilijic Tiure", 16}, {"Max Rebo", 99}},
			opts:       withFallback,
			wantID:     16,
			wantKind:   Fallback,
			wantOK:     true,
		},
		{
			name:       "fallback disabled",
			target:     "Sy Snootles",
			candidates: []record{{"Jabba Desilijic Tiure", 16}},
			wantKind:   None,
		},
		{
			name:       "diacritics and spacing folded",
			target:     "  Padmé   Amidala ",
			candidates: []record{{"Padme Amidala", 35}},
			wantID:     35,
			wantKind:   Exact,
			wantOK:     true,
		},
		{
			name:       "empty target skips partial",
			target:     "",
			candidates: []record{{"R2-D2", 3}},
			wantKind:   None,
		},
		{
			name:       "blank target never falls back",
			target:     " \t ",
			candidates: []record{{"Luke Skywalker", 1}, {"", 2}},
			opts:       withFallback,
			wantKind:   None,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind, ok := Best(tt.target, tt.candidates, nameOf, tt.opts)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "padme amidala", Fold("PADMÉ\tAmidala"))
	assert.Equal(t, "r2-d2", Fold("R2-D2"))
	assert.Empty(t, Fold("   "))
}

func TestBest_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOf(rapid.StringMatching(`[A-Za-z \-]{0,12}`)).Draw(rt, "names")
		target := rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(rt, "target")
		fallback := rapid.Bool().Draw(rt, "fallback")

		candidates := make([]record, len(names))
		for i, n := range names {
			candidates[i] = record{Name: n, ID: i}
		}

		got, kind, ok := Best(target, candidates, nameOf, Options{Fallback: fallback})
		again, kind2, ok2 := Best(target, candidates, nameOf, Options{Fallback: fallback})

		// Deterministic.
		if got != again || kind != kind2 || ok != ok2 {
			rt.Fatalf("non-deterministic result")
		}
		// Blank targets never match.
		if Fold(target) == "" && ok {
			rt.Fatalf("blank target matched %q", got.Name)
		}
		// With fallback, absent only for empty input.
		if fallback && Fold(target) != "" && ok != (len(candidates) > 0) {
			rt.Fatalf("fallback: ok=%v with %d candidates", ok, len(candidates))
		}
		if kind == Exact && Fold(got.Name) != Fold(target) {
			rt.Fatalf("exact match %q does not equal %q", got.Name, target)
		}
		if !ok && kind != None {
			rt.Fatalf("kind %v without a match", kind)
		}
	})
}
