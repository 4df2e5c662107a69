package utils

import (
	"strconv"
	"strings"
)

// NewNullString is a helper for string pointers, returning nil if string is empty.
// Useful for fields that are optional and should be NULL in DB if not provided.
func NewNullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StrValue dereferences s, returning "" for nil.
func StrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// NormalizeQuery lowercases and collapses whitespace so equivalent
// search strings share a cache key.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
