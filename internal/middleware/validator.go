package middleware

import (
	"fmt"
	"strings"
)

// Input validation and sanitization utilities

// ValidateIdea checks the submitted idea text after trimming.
func ValidateIdea(idea string) error {
	trimmed := strings.TrimSpace(idea)
	if len(trimmed) < 3 {
		return fmt.Errorf("idea must be at least 3 characters")
	}
	if len(trimmed) > 2000 {
		return fmt.Errorf("idea must be at most 2000 characters")
	}
	return nil
}

// ValidateKeyCode rejects obviously malformed access codes before any store
// lookup. Matching against the store stays case-sensitive and exact.
func ValidateKeyCode(code string) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if len(trimmed) > 128 {
		return fmt.Errorf("key is too long")
	}
	for _, r := range trimmed {
		if r < 32 || r == 127 {
			return fmt.Errorf("key contains control characters")
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates history listing limits
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 20 {
		return 20 // max per-key history page
	}
	return limit
}
