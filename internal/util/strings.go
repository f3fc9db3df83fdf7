// Package util provides shared utility functions used across the codebase.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitCSV splits a comma-separated string into a slice, trimming whitespace.
// Returns nil for empty strings.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// ParseInts parses a comma-separated string of integers, trimming whitespace.
// Returns nil for empty strings and an error naming the first bad element.
func ParseInts(s string) ([]int, error) {
	parts := SplitCSV(s)
	if parts == nil {
		return nil, nil
	}
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		result = append(result, n)
	}
	return result, nil
}
