package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordLengthPolicy(t *testing.T) {
	p := NewWordLengthPolicy(15)

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "short words", text: "hello there", wantErr: false},
		{name: "sixteen chars rejected", text: "exactlyfifteen!5", wantErr: true},
		{name: "fifteen chars ok", text: "exactlyfifteen5", wantErr: false},
		{name: "long word", text: "superlongwordthatistoolong", wantErr: true},
		{name: "long word among short ones", text: "hi superlongwordthatistoolong bye", wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "whitespace only", text: "   \t\n", wantErr: true},
		{name: "multibyte under limit", text: "héllo wörld", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWordLengthPolicyEmptyIsDistinct(t *testing.T) {
	p := NewWordLengthPolicy(15)

	err := p.Validate("  ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	err = p.Validate("superlongwordthatistoolong")
	var wordErr *WordTooLongError
	require.True(t, errors.As(err, &wordErr))
	assert.Equal(t, "superlongwordthatistoolong", wordErr.Word)
	assert.Equal(t, 15, wordErr.Max)
}

func TestWordLengthPolicyDefaultMax(t *testing.T) {
	p := NewWordLengthPolicy(0)
	assert.Equal(t, 15, p.MaxWordLength)
}
