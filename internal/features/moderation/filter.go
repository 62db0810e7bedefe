package moderation

import (
	"strings"
)

const (
	maxMentions     = 5
	maxLinks        = 3
	maxCharRunLen   = 15
	mentionSequence = "<@"
)

// Filter applies the message heuristics: bad-word containment, mention
// flooding, link flooding and long single-character runs.
type Filter struct {
	badWords []string
}

func NewFilter(badWords []string) *Filter {
	words := make([]string, 0, len(badWords))
	for _, w := range badWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words = append(words, w)
		}
	}
	return &Filter{badWords: words}
}

// Check returns whether content violates the rules and which rule tripped.
func (f *Filter) Check(content string) (bool, string) {
	if content == "" {
		return false, ""
	}

	lower := strings.ToLower(content)
	for _, w := range f.badWords {
		if strings.Contains(lower, w) {
			return true, "bad_word"
		}
	}

	if strings.Count(content, mentionSequence) > maxMentions {
		return true, "mention_flood"
	}

	links := strings.Count(lower, "http://") + strings.Count(lower, "https://")
	if links > maxLinks {
		return true, "link_flood"
	}

	if longestRun(content) >= maxCharRunLen {
		return true, "char_flood"
	}

	return false, ""
}

func longestRun(s string) int {
	longest, run := 0, 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = r
	}
	return longest
}
