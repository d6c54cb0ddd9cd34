package session

import (
	"regexp"
	"strings"
)

var itemRe = regexp.MustCompile(`^\s*(?:\d{1,3}[.)]|[-*•])\s+(.*)$`)

// SplitQuestions breaks a generated question block into individual items.
// Numbered ("1." or "1)") and bulleted lines start an item; indented or
// plain lines that follow are joined onto the current item. Text before the
// first item is ignored. A block with no list markers yields its non-empty
// lines.
func SplitQuestions(block string) []string {
	var items []string
	var plain []string
	cur := -1
	for _, raw := range strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := itemRe.FindStringSubmatch(raw); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
			cur = len(items) - 1
			continue
		}
		plain = append(plain, line)
		if cur >= 0 {
			items[cur] = strings.TrimSpace(items[cur] + " " + line)
		}
	}
	if len(items) == 0 {
		return plain
	}
	out := items[:0]
	for _, it := range items {
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

// HasQuestion reports whether q is one of the questions of block: an item
// from SplitQuestions or a whole trimmed line.
func HasQuestion(block, q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return false
	}
	for _, it := range SplitQuestions(block) {
		if it == q {
			return true
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == q {
			return true
		}
	}
	return false
}
