// Package glob implements PatternForge's restricted wildcard grammar: `*`
// as the only metacharacter, matching any substring including the empty
// string and delimiter characters. All other characters match literally.
//
// Matching is case-insensitive by canonicalization — callers are expected
// to have already lower-cased both the pattern and the subject the way
// pkg/forge/token does, so Match itself performs no allocation and no
// case folding on the hot path.
package glob

import "strings"

// Match reports whether pattern matches s under the `*`-only grammar.
// A pattern with no leading `*` is anchored at the start of s; with no
// trailing `*`, anchored at the end. Multiple `*` segments must occur in
// order but need not be adjacent. Worst case is O(len(pattern)*len(s));
// the hot path performs no allocation.
func Match(pattern, s string) bool {
	// Fast path: no wildcard at all is an exact literal match.
	if !strings.ContainsRune(pattern, '*') {
		return pattern == s
	}

	segments, leadingStar, trailingStar := splitSegments(pattern)

	pos := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if i == 0 && !leadingStar {
			// First segment must match at the very start of s.
			if !strings.HasPrefix(s[pos:], seg) {
				return false
			}
			pos += len(seg)
			continue
		}
		if i == len(segments)-1 && !trailingStar {
			// Last segment must match at the very end of s.
			if !strings.HasSuffix(s[pos:], seg) {
				return false
			}
			// Nothing more can follow; verified below by loop exit.
			pos = len(s)
			continue
		}
		idx := strings.Index(s[pos:], seg)
		if idx < 0 {
			return false
		}
		pos += idx + len(seg)
	}

	return true
}

// splitSegments splits pattern on '*' into the literal segments between
// wildcards, and reports whether the pattern begins/ends with a '*'.
func splitSegments(pattern string) (segments []string, leadingStar, trailingStar bool) {
	leadingStar = strings.HasPrefix(pattern, "*")
	trailingStar = strings.HasSuffix(pattern, "*")
	segments = strings.Split(pattern, "*")
	return segments, leadingStar, trailingStar
}

// Wildcards counts the `*` characters in a pattern.
func Wildcards(pattern string) int {
	return strings.Count(pattern, "*")
}

// Length counts the non-`*` characters in a pattern.
func Length(pattern string) int {
	return len(pattern) - Wildcards(pattern)
}

// IsBareWildcard reports whether pattern contains only `*` characters (or
// is empty) — the one pattern shape PatternForge must never emit.
func IsBareWildcard(pattern string) bool {
	return Length(pattern) == 0
}
