package enrich

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// DefaultSummarySentences is the number of leading sentences kept by Summarize
const DefaultSummarySentences = 3

// sentenceBoundary matches the whitespace that follows terminal punctuation
var sentenceBoundary = regexp2.MustCompile(`(?<=[.!?])\s+`, regexp2.None)

// Summarize returns the first maxSentences sentences of text joined by single
// spaces. Empty or whitespace-only text yields "". A non-positive maxSentences
// falls back to DefaultSummarySentences.
func Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultSummarySentences
	}

	sentences := SplitSentences(text)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

// SplitSentences splits trimmed text at whitespace following '.', '!' or '?'
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// regexp2 reports positions in runes
	runes := []rune(text)
	sentences := make([]string, 0, 4)
	start := 0

	m, err := sentenceBoundary.FindRunesMatch(runes)
	for err == nil && m != nil {
		sentences = append(sentences, string(runes[start:m.Index]))
		start = m.Index + m.Length
		m, err = sentenceBoundary.FindNextMatch(m)
	}
	if err != nil {
		// Only a match timeout can fail here, and none is configured
		return []string{text}
	}

	return append(sentences, string(runes[start:]))
}
