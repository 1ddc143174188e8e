// Package chunker splits documents into overlapping, semantically
// bounded segments under a dual length constraint.
//
// Chunk boundaries are chosen at natural breaks in priority order:
// paragraph break, then sentence end, then whitespace. A chunk ends
// at the widest natural span that fits: a whole paragraph, else a
// single sentence, else whitespace-separated pieces packed until the
// budget. Rune count and token count are verified together because
// they diverge for languages without explicit word spacing. When a
// single unbreakable run exceeds the budget the chunk is cut at the
// hard character limit and flagged BoundaryForced.
package chunker

import (
	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragbase-cli/internal/tokens"
)

// DefaultMaxChars is the default character budget per chunk.
const DefaultMaxChars = 1500

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 450

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Ensure Splitter implements the port.
var _ driven.Splitter = (*Splitter)(nil)

// Splitter chunks document content under the dual length constraint.
type Splitter struct {
	maxChars   int
	maxTokens  int
	overlap    int
	overlapSet bool
	counter    tokens.Counter
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChars sets the character budget per chunk.
func WithMaxChars(n int) Option {
	return func(s *Splitter) {
		s.maxChars = n
	}
}

// WithMaxTokens sets the token budget per chunk.
func WithMaxTokens(n int) Option {
	return func(s *Splitter) {
		s.maxTokens = n
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(n int) Option {
	return func(s *Splitter) {
		s.overlap = n
		s.overlapSet = true
	}
}

// WithCounter sets the token counter. Defaults to tokens.Approx.
func WithCounter(c tokens.Counter) Option {
	return func(s *Splitter) {
		s.counter = c
	}
}

// New creates a splitter with the given options.
// Invalid length parameters are rejected here, before any work starts.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		maxChars:  DefaultMaxChars,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.maxChars <= 0 {
		return nil, domain.NewConfigError("max chars must be positive, got %d", s.maxChars)
	}
	if s.maxTokens <= 0 {
		return nil, domain.NewConfigError("max tokens must be positive, got %d", s.maxTokens)
	}
	if s.overlap < 0 {
		return nil, domain.NewConfigError("overlap must not be negative, got %d", s.overlap)
	}
	// Only an overlap the caller chose is rejected; the default
	// shrinks with a smaller character budget via the clamp below.
	if s.overlapSet && s.overlap >= s.maxChars {
		return nil, domain.NewConfigError("overlap %d must be smaller than max chars %d", s.overlap, s.maxChars)
	}

	// Overlap beyond half a chunk defeats the length budget.
	if s.overlap > s.maxChars/2 {
		s.overlap = s.maxChars / 2
	}

	if s.counter == nil {
		s.counter = tokens.Approx{}
	}

	return s, nil
}

// MaxChars returns the configured character budget.
func (s *Splitter) MaxChars() int {
	return s.maxChars
}

// MaxTokens returns the configured token budget.
func (s *Splitter) MaxTokens() int {
	return s.maxTokens
}

// Overlap returns the effective overlap after clamping.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split chunks the document. An empty document yields no chunks and
// no error. Ordering is stable and equals document order.
func (s *Splitter) Split(doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	var chunks []domain.Chunk
	sc := s.NewScanner(doc)
	for sc.Next() {
		chunks = append(chunks, sc.Chunk())
	}
	return chunks, nil
}
