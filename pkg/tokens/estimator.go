// Package tokens provides approximate token accounting for conversation
// budgeting. Counts are estimates derived from text length, not tokenizer
// output: callers may rely on determinism and monotonicity, never exactness.
package tokens

import "strings"

// CharsPerToken is the fixed character-to-token ratio used by Estimate.
// Four characters per token is a reasonable average for English prose and
// source code across the supported model families.
const CharsPerToken = 4

// Estimate returns the approximate token count of text, rounded to the
// nearest integer. Empty or whitespace-only input estimates to zero.
func Estimate(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	// Nearest-integer rounding in integer arithmetic
	return (len(text) + CharsPerToken/2) / CharsPerToken
}

// EstimateAll returns the summed estimate over several texts
func EstimateAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += Estimate(t)
	}
	return total
}
