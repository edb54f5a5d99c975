package common

import "strings"

// HasAny reports whether s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// SafePathSegment reports whether s can be forwarded as a single URL path
// segment to the data service without escaping its directory.
func SafePathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !HasAny(s, "/", "\\", "..", "\x00")
}
