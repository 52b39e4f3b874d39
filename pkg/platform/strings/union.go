// Package strings holds helpers for the string lists carried on verdicts.
package strings

import (
	"strings"
)

// Union merges lists into one in first-seen order. Each value is trimmed and
// blanks are dropped. The result is never nil, so it encodes as [] rather
// than null.
func Union(lists ...[]string) []string {
	size := 0
	for _, l := range lists {
		size += len(l)
	}

	seen := make(map[string]struct{}, size)
	out := make([]string, 0, size)
	for _, l := range lists {
		for _, v := range l {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
