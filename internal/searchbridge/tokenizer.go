package searchbridge

import (
	"regexp"
	"strings"
	"unicode"
)

// identifierRegex matches alphanumeric runs (including underscores) as a
// first-pass split before camelCase/snake_case decomposition.
var identifierRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeContent splits indexed content with identifier-aware rules: it
// handles camelCase, PascalCase and snake_case tokens (common in SKUs, tags,
// and other short item labels mixed into free text) and filters tokens
// shorter than two characters. All tokens are lowercased.
func TokenizeContent(text string) []string {
	var tokens []string

	words := identifierRegex.FindAllString(text, -1)
	for _, word := range words {
		for _, t := range splitIdentifier(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// splitIdentifier splits snake_case then delegates each part to
// splitCamelCase.
func splitIdentifier(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase and PascalCase tokens, keeping runs of
// consecutive uppercase letters (acronyms) together:
//   "getUserById"     -> ["get", "User", "By", "Id"]
//   "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// buildStopWordMap converts a stop-word list to a lookup set.
func buildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// DefaultStopWords filters a handful of high-frequency, low-signal tokens
// out of indexed item content. Unlike code search, item descriptions are
// prose, so this list is short and generic rather than language-keyword
// specific.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "of", "to", "in", "for", "with",
}
