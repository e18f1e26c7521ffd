package mem

import (
	"sort"
	"strings"
	"unicode"
)

// MaxKeywords bounds the keyword set derived for a record.
const MaxKeywords = 10

// minKeywordLen excludes tokens too short to carry signal.
const minKeywordLen = 3

// ExtractKeywords derives the salient terms of a text: lower-cased
// tokens longer than two characters, stop words removed, ranked by
// descending frequency with first-seen order breaking ties, capped at
// MaxKeywords. Pure function; identical input yields identical output.
func ExtractKeywords(text string) []string {
	counts := make(map[string]int)
	order := make([]string, 0, MaxKeywords)

	for _, token := range tokenize(text) {
		if len(token) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	// Stable sort keeps first-seen order among equal frequencies.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	return order
}

// tokenize lower-cases the text, strips every rune that is not a
// letter, digit, hyphen, or whitespace, and splits on whitespace.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Fields(b.String())
}

// stopWords are common English function words plus a few filler words
// frequent in captured notes. Tokens of one or two characters never
// reach the lookup, so the set only carries longer words.
var stopWords = buildStopWords()

func buildStopWords() map[string]struct{} {
	words := []string{
		"the", "and", "are", "was", "were", "been", "being",
		"have", "has", "had", "does", "did", "will", "would", "could",
		"should", "may", "might", "shall", "can", "dare", "ought",
		"used", "for", "with", "from", "into", "through", "during",
		"before", "after", "above", "below", "between", "out", "off",
		"over", "under", "again", "further", "then", "once", "but",
		"nor", "not", "yet", "both", "either", "neither", "each",
		"every", "all", "any", "few", "more", "most", "other", "some",
		"such", "own", "same", "than", "too", "very", "just", "because",
		"when", "where", "how", "what", "which", "who", "whom", "this",
		"that", "these", "those", "about", "also", "there", "here",
		"myself", "ourselves", "you", "your", "yours", "yourself",
		"yourselves", "him", "his", "himself", "she", "her", "hers",
		"herself", "its", "itself", "they", "them", "their", "theirs",
		"themselves",
		// filler common in captured notes
		"remember", "memory", "note", "thing", "things", "stuff",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
