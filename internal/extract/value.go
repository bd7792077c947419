// Package extract pulls candidate values and visible text out of document content.
package extract

import (
	"strings"
	"unicode/utf8"
)

// Default value length bounds (exclusive, in characters)
const (
	DefaultMinLength = 10
	DefaultMaxLength = 500
)

// ValueExtractor finds the sentence of a document that most plausibly holds
// a field's value
type ValueExtractor struct {
	minLength int
	maxLength int
}

// NewValueExtractor creates an extractor accepting values whose length lies
// strictly between minLength and maxLength
func NewValueExtractor(minLength, maxLength int) *ValueExtractor {
	if minLength < 0 {
		minLength = DefaultMinLength
	}
	if maxLength <= minLength {
		maxLength = DefaultMaxLength
	}
	return &ValueExtractor{minLength: minLength, maxLength: maxLength}
}

// Extract returns the first sentence that mentions any word of fieldText and
// whose trimmed length is within bounds, or nil.
func (e *ValueExtractor) Extract(fieldText, content string) *string {
	keywords := strings.Fields(strings.ToLower(fieldText))
	if len(keywords) == 0 {
		return nil
	}

	for _, sentence := range SplitSentences(content) {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			value := strings.TrimSpace(sentence)
			if n := utf8.RuneCountInString(value); n > e.minLength && n < e.maxLength {
				return &value
			}
			break
		}
	}
	return nil
}

// SplitSentences splits text on '.', '!' and '?'. Segments are returned
// untrimmed; empty segments are dropped.
func SplitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}
