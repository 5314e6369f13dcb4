// Package id generates correlation identifiers for batches and requests.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// correlationAlphabet avoids look-alike characters so ids read well in logs.
	correlationAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"
	correlationLength   = 10
)

// Generate creates a prefixed correlation id, e.g. "batch-k3v9q2mx7a".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(correlationAlphabet, correlationLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// OrFallback returns a generated id, or prefix-"unknown" when the system
// cannot supply randomness. Correlation ids are for logs only.
func OrFallback(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		return prefix + "-unknown"
	}
	return id
}
