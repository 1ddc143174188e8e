package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/tokens"
)

func newTestSplitter(t *testing.T, opts ...Option) *Splitter {
	t.Helper()
	opts = append([]Option{WithCounter(tokens.Approx{})}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

func testDoc(content string) *domain.Document {
	return &domain.Document{ID: "doc", Content: content}
}

// reassemble concatenates chunk texts, dropping each chunk's overlap
// prefix. For all documents this must reproduce the content exactly.
func reassemble(chunks []domain.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		text := c.Text
		for i := 0; i < c.Overlap; i++ {
			_, size := utf8.DecodeRuneInString(text)
			text = text[size:]
		}
		b.WriteString(text)
	}
	return b.String()
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero max chars", []Option{WithMaxChars(0)}},
		{"negative max chars", []Option{WithMaxChars(-5)}},
		{"zero max tokens", []Option{WithMaxTokens(0)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
		{"overlap equals max chars", []Option{WithMaxChars(100), WithOverlap(100)}},
		{"overlap exceeds max chars", []Option{WithMaxChars(100), WithOverlap(150)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfig))
		})
	}
}

func TestNew_OverlapClamped(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(100), WithOverlap(80))
	// Overlap never exceeds half the character budget.
	assert.Equal(t, 50, s.Overlap())
}

func TestNew_DefaultOverlapClamped(t *testing.T) {
	// Lowering only the character budget must not reject the default
	// overlap; it shrinks with the budget instead.
	s := newTestSplitter(t, WithMaxChars(25), WithMaxTokens(15))
	assert.Equal(t, 12, s.Overlap())
}

func TestSplit_EmptyDocument(t *testing.T) {
	s := newTestSplitter(t)
	chunks, err := s.Split(testDoc(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortDocument(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(100), WithMaxTokens(50), WithOverlap(20))
	chunks, err := s.Split(testDoc("One small document."))
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "One small document.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Overlap)
	assert.Equal(t, 0, chunks[0].Index)
	assert.False(t, chunks[0].BoundaryForced)
	assert.Equal(t, "doc-0000", chunks[0].ID)
}

// TestSplit_TightSentences covers the canonical boundary case: three
// one-sentence spans under a tight dual budget yield one chunk per
// sentence, cut at sentence ends, with no forced splits.
func TestSplit_TightSentences(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(5), WithMaxTokens(5), WithOverlap(0))
	chunks, err := s.Split(testDoc("A.B.C."))
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, "A.", chunks[0].Text)
	assert.Equal(t, "B.", chunks[1].Text)
	assert.Equal(t, "C.", chunks[2].Text)
	for _, c := range chunks {
		assert.False(t, c.BoundaryForced)
		assert.LessOrEqual(t, c.CharCount, 5)
		assert.LessOrEqual(t, c.TokenCount, 5)
	}
}

func TestSplit_SentenceBoundaries(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(40), WithMaxTokens(20), WithOverlap(0))
	content := "First sentence here. Second one follows. Third is a bit longer than the rest. Fourth closes."
	chunks, err := s.Split(testDoc(content))
	require.NoError(t, err)

	// A paragraph over budget breaks into one chunk per sentence.
	require.Len(t, chunks, 4)
	assert.Equal(t, "First sentence here. ", chunks[0].Text)
	assert.Equal(t, "Fourth closes.", chunks[3].Text)
	assert.Equal(t, content, reassemble(chunks))

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, domain.ChunkID("doc", i), c.ID)
		assert.LessOrEqual(t, c.CharCount, 40)
		assert.LessOrEqual(t, c.TokenCount, 20)
		assert.False(t, c.BoundaryForced)
		// Chunk ends fall on sentence boundaries.
		assert.Contains(t, ".!?", string(strings.TrimSpace(c.Text)[len(strings.TrimSpace(c.Text))-1]))
	}
}

// TestSplit_RoundTrip verifies the reconstruction property across a
// spread of shapes and budgets.
func TestSplit_RoundTrip(t *testing.T) {
	docs := []struct {
		name    string
		content string
	}{
		{"plain prose", "The chunker scans the document. It accumulates sentences. Budgets are checked twice, once per measure."},
		{"paragraphs", "Intro paragraph with two sentences. Here is the second.\n\nBody paragraph follows after a break.\n\nClosing remarks."},
		{"cjk", "检索增强生成将文档切分为语义块。每个块同时受字符数与词元数限制。超出预算时在句界切分。"},
		{"no boundaries", strings.Repeat("x", 400)},
		{"mixed whitespace", "word " + strings.Repeat("another word ", 30) + "\n\n\ttrailing\tparagraph"},
		{"trailing newlines", "Sentence one. Sentence two.\n\n\n"},
	}
	budgets := []struct {
		name           string
		chars, toks, o int
	}{
		{"tight", 30, 12, 0},
		{"overlapping", 60, 30, 10},
		{"roomy", 1500, 450, 200},
	}

	for _, d := range docs {
		for _, b := range budgets {
			t.Run(d.name+"/"+b.name, func(t *testing.T) {
				s := newTestSplitter(t,
					WithMaxChars(b.chars), WithMaxTokens(b.toks), WithOverlap(b.o))
				chunks, err := s.Split(testDoc(d.content))
				require.NoError(t, err)
				assert.Equal(t, d.content, reassemble(chunks))
				for _, c := range chunks {
					assert.NotEmpty(t, c.Text)
					if !c.BoundaryForced {
						assert.LessOrEqual(t, c.CharCount, b.chars)
						assert.LessOrEqual(t, c.TokenCount, b.toks)
					}
				}
			})
		}
	}
}

func TestSplit_ForcedSplit(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(10), WithMaxTokens(50), WithOverlap(0))
	content := strings.Repeat("a", 35) // no boundary anywhere

	chunks, err := s.Split(testDoc(content))
	require.NoError(t, err)

	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.True(t, c.BoundaryForced, "chunk %d should be flagged", i)
		assert.LessOrEqual(t, c.CharCount, 10)
	}
	assert.Equal(t, content, reassemble(chunks))
}

func TestSplit_ForcedSplit_TokenBound(t *testing.T) {
	// Characters fit easily; the token budget forces the cut. Han
	// runes count one token each under the approx counter.
	s := newTestSplitter(t, WithMaxChars(100), WithMaxTokens(4), WithOverlap(0))
	content := strings.Repeat("词", 10) // one unbreakable run, 10 tokens

	chunks, err := s.Split(testDoc(content))
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.True(t, c.BoundaryForced)
		assert.LessOrEqual(t, c.TokenCount, 4)
	}
	assert.Equal(t, content, reassemble(chunks))
}

func TestSplit_Overlap(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(30), WithMaxTokens(20), WithOverlap(8))
	content := "Alpha sentence one. Beta sentence two. Gamma sentence three. Delta four."
	chunks, err := s.Split(testDoc(content))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, 0, chunks[0].Overlap)
	for i := 1; i < len(chunks); i++ {
		c := chunks[i]
		if c.Overlap == 0 {
			continue // prefix surrendered to make room
		}
		prefix := string([]rune(c.Text)[:c.Overlap])
		assert.True(t, strings.HasSuffix(chunks[i-1].Text, prefix),
			"chunk %d prefix %q is not the tail of its predecessor", i, prefix)
	}
	assert.Equal(t, content, reassemble(chunks))
}

func TestScanner_Restartable(t *testing.T) {
	s := newTestSplitter(t, WithMaxChars(25), WithMaxTokens(15))
	doc := testDoc("One sentence here. Another one there. A third to spill over the budget.")

	first, err := s.Split(doc)
	require.NoError(t, err)
	second, err := s.Split(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Lazy path produces the same sequence as the eager one.
	sc := s.NewScanner(doc)
	var lazy []domain.Chunk
	for sc.Next() {
		lazy = append(lazy, sc.Chunk())
	}
	assert.Equal(t, first, lazy)
}

func TestSplit_NilDocument(t *testing.T) {
	s := newTestSplitter(t)
	_, err := s.Split(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
