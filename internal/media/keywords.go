package media

import "strings"

// Classifier flags text that contains any of a set of lowercase keywords.
type Classifier struct {
	keywords []string
}

// NewClassifier creates a classifier over the given keywords. Keywords are
// expected in lowercase (config normalizes them at load time).
func NewClassifier(keywords []string) Classifier {
	return Classifier{keywords: keywords}
}

// Match reports whether any text contains any keyword, case-insensitive.
// Empty texts never match.
func (c Classifier) Match(texts ...string) bool {
	for _, text := range texts {
		if text == "" {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(text))
		for _, kw := range c.keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
