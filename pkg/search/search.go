// Package search implements the free-text filtering used by list views.
package search

import "strings"

// Fields extracts the searchable text of a record.
type Fields[T any] func(item T) []string

// Filter returns the records whose designated fields contain term,
// ignoring case. An empty term returns items unchanged.
func Filter[T any](items []T, term string, fields Fields[T]) []T {
	if term == "" {
		return items
	}
	needle := strings.ToLower(term)
	result := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(fields(item), needle) {
			result = append(result, item)
		}
	}
	return result
}

// Matches reports whether any value contains the lower-cased needle.
func Matches(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
