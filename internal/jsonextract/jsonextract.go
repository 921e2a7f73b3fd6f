// Package jsonextract locates JSON payloads embedded in LLM replies.
// Generation endpoints frequently wrap the requested JSON in commentary or
// markdown fencing; these helpers cut out the widest plausible JSON substring
// so callers can attempt a strict parse on it.
package jsonextract

import "strings"

// FirstArray returns the substring from the first '[' to the last ']' in s.
// Returns "" when no such span exists. The span is not validated — callers
// must still json.Unmarshal it and treat failure as "no payload".
func FirstArray(s string) string {
	return span(s, '[', ']')
}

// FirstObject returns the substring from the first '{' to the last '}' in s.
// Returns "" when no such span exists.
func FirstObject(s string) string {
	return span(s, '{', '}')
}

// span cuts the widest open..close region, mirroring the greedy regex
// tolerance expected of the upstream endpoints.
func span(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
