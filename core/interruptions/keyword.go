// Package interruptions scores how urgently a message demands the floor.
//
// The default scorer is a deterministic keyword-overlap heuristic; the llm
// subpackage offers a model-backed classifier for deployments that want one.
package interruptions

import (
	"strings"
	"unicode"
)

// Score computes the normalized keyword overlap between a message and an
// agent's keyword list: the share of distinct keywords that appear as words
// in the message. The result is within [0, 1]; an empty keyword list scores
// zero. The same inputs always produce the same score.
func Score(message string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	words := map[string]struct{}{}
	for _, word := range tokenize(message) {
		words[word] = struct{}{}
	}

	matched := 0
	seen := map[string]struct{}{}
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}

		if containsKeyword(words, message, keyword) {
			matched++
		}
	}

	if len(seen) == 0 {
		return 0
	}
	return float64(matched) / float64(len(seen))
}

// containsKeyword matches single-word keywords against the tokenized message
// and multi-word keywords as a case-insensitive substring.
func containsKeyword(words map[string]struct{}, message, keyword string) bool {
	if strings.ContainsAny(keyword, " \t") {
		return strings.Contains(strings.ToLower(message), keyword)
	}
	_, ok := words[keyword]
	return ok
}

func tokenize(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
