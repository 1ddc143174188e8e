// Package tokens provides token counting for chunk length budgeting.
//
// Character length and token length diverge for languages without
// explicit word spacing, so the chunker tracks both measures and this
// package supplies the token side.
package tokens

import (
	"fmt"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a piece of text.
// Any component with this contract is substitutable; tests use a
// deterministic stub.
type Counter interface {
	// Count returns the token count for text. Must be monotonic:
	// a prefix of text never counts more tokens than text itself.
	Count(text string) int

	// Name identifies the counter for logging and diagnostics.
	Name() string
}

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// BPE counts tokens with a tiktoken byte-pair encoding.
type BPE struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// NewBPE creates a BPE counter for the given encoding name.
// An empty name selects DefaultEncoding.
func NewBPE(encoding string) (*BPE, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &BPE{enc: enc, encoding: encoding}, nil
}

// Count returns the BPE token count for text.
func (b *BPE) Count(text string) int {
	return len(b.enc.Encode(text, nil, nil))
}

// Name identifies the counter.
func (b *BPE) Name() string {
	return "bpe/" + b.encoding
}

// Approx is a dependency-free fallback counter used when no BPE
// encoding can be loaded. It counts each run of spacing-delimited
// characters as one token and each ideograph as its own token, which
// tracks segmenter-based counts closely enough for length budgeting.
type Approx struct{}

// Count returns the approximate token count for text.
func (Approx) Count(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
			// Ideographs and syllabics count individually.
			count++
			inWord = false
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			count++
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

// Name identifies the counter.
func (Approx) Name() string {
	return "approx"
}
