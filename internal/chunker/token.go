package chunker

import "strings"

// EstimateTokens gives a rough token count from the word count. Chunk
// sizes only need to stay near the tagger's request limit.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 0.75 words per token.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}
