package policy

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyMessage is returned for messages with no content.
var ErrEmptyMessage = errors.New("message is empty")

// WordTooLongError reports a message token exceeding the configured cap.
type WordTooLongError struct {
	Word string
	Max  int
}

func (e *WordTooLongError) Error() string {
	return fmt.Sprintf("word %q exceeds %d characters", e.Word, e.Max)
}

// MessageValidator checks message content before it is persisted or
// broadcast. Validation is a content policy, kept separate from routing
// and persistence so the policy can change without touching either.
type MessageValidator interface {
	Validate(text string) error
}

// WordLengthPolicy rejects messages containing any whitespace-delimited
// token longer than MaxWordLength runes. Enforced server-side; the client
// check is a courtesy, not a security boundary.
type WordLengthPolicy struct {
	MaxWordLength int
}

// NewWordLengthPolicy creates a WordLengthPolicy. A non-positive max
// falls back to the default of 15.
func NewWordLengthPolicy(max int) *WordLengthPolicy {
	if max <= 0 {
		max = 15
	}
	return &WordLengthPolicy{MaxWordLength: max}
}

// Validate implements MessageValidator.
func (p *WordLengthPolicy) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) > p.MaxWordLength {
			return &WordTooLongError{Word: word, Max: p.MaxWordLength}
		}
	}
	return nil
}

var _ MessageValidator = (*WordLengthPolicy)(nil)
