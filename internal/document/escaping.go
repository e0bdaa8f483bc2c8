package document

import "strings"

// Notes Station writes note files whose double backslashes do not survive a
// standard JSON decode of the outer noteInfo.json and then of the embedded
// document tree. The contract is two-phase:
//
//  1. Before the note file is decoded, EscapeBackslashes replaces every literal
//     `\\` with BackslashSentinel.
//  2. Before the document tree is decoded, UnescapeContent turns escaped quotes
//     back into plain quotes and then every sentinel into a single backslash.
//
// A note that already contains the sentinel text cannot be restored exactly;
// EscapeBackslashes reports that as a collision so callers can surface it.
const BackslashSentinel = "~#~"

// EscapeBackslashes is the first phase of the contract. substituted reports whether
// any double backslash was replaced; collision reports whether raw already held the
// sentinel before substitution.
func EscapeBackslashes(raw string) (escaped string, substituted, collision bool) {
	collision = strings.Contains(raw, BackslashSentinel)
	escaped = strings.ReplaceAll(raw, `\\`, BackslashSentinel)
	substituted = strings.Count(escaped, BackslashSentinel) > strings.Count(raw, BackslashSentinel)
	return escaped, substituted, collision
}

// UnescapeBackslashes reverses the sentinel substitution only.
func UnescapeBackslashes(s string) string {
	return strings.ReplaceAll(s, BackslashSentinel, `\`)
}

// UnescapeContent is the second phase, applied to a note's content before the
// document tree is decoded. Order matters: quotes first, then the sentinel.
func UnescapeContent(content string) string {
	content = strings.ReplaceAll(content, `\"`, `"`)
	return UnescapeBackslashes(content)
}
