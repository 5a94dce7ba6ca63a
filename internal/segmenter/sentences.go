package segmenter

import "strings"

// sentenceEnders are the runes that close a sentence.
const sentenceEnders = ".!?"

// SplitSentences splits text into sentences on terminal punctuation. A run of
// enders (ellipses, "?!") stays attached to the sentence it closes. The ender
// only terminates when followed by whitespace or end of text, so decimals and
// dotted abbreviations survive.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)

	start := 0
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(sentenceEnders, runes[i]) {
			continue
		}

		// Swallow the whole ender run.
		for i+1 < len(runes) && strings.ContainsRune(sentenceEnders, runes[i+1]) {
			i++
		}
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
