package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

// Scanner produces chunks one at a time, in document order.
// It follows the bufio.Scanner idiom: call Next until it returns
// false, reading each chunk with Chunk. The sequence is finite and
// restartable; create a new scanner to rescan.
type Scanner struct {
	s     *Splitter
	doc   *domain.Document
	units []unit
	pos   int
	index int
	prev  string // text of the previous chunk, for overlap
	cur   domain.Chunk
}

// NewScanner creates a scanner over the document's content.
func (s *Splitter) NewScanner(doc *domain.Document) *Scanner {
	return &Scanner{
		s:     s,
		doc:   doc,
		units: s.segment(doc.Content),
	}
}

// Next advances to the next chunk. It returns false when the
// document is exhausted.
func (sc *Scanner) Next() bool {
	if sc.pos >= len(sc.units) {
		return false
	}

	s := sc.s

	// Overlap: the next chunk begins overlap runes before the
	// previous chunk's end. The prefix shrinks when it would leave no
	// room for new content within the budget.
	prefix := ""
	if sc.index > 0 && s.overlap > 0 {
		prefix = tailRunes(sc.prev, s.overlap)
	}
	chars := utf8.RuneCountInString(prefix)
	toks := 0
	if prefix != "" {
		toks = s.counter.Count(prefix)
	}

	var b strings.Builder
	b.WriteString(prefix)
	packed := 0
	forced := false

	for sc.pos < len(sc.units) {
		u := sc.units[sc.pos]

		if chars+u.chars > s.maxChars || toks+u.tokens > s.maxTokens {
			if packed > 0 {
				break
			}
			// Nothing but the prefix so far: give up overlap runes
			// from the front until the unit fits. Segmentation
			// guarantees it fits once the prefix is gone.
			if prefix != "" {
				prefix = trimFirstRune(prefix)
				chars = utf8.RuneCountInString(prefix)
				toks = 0
				if prefix != "" {
					toks = s.counter.Count(prefix)
				}
				b.Reset()
				b.WriteString(prefix)
				continue
			}
		}

		b.WriteString(u.text)
		chars += u.chars
		toks += u.tokens
		forced = forced || u.forced
		packed++
		sc.pos++

		// In-budget natural spans close the chunk.
		if u.boundary {
			break
		}
	}

	text := b.String()
	sc.cur = domain.Chunk{
		ID:             domain.ChunkID(sc.doc.ID, sc.index),
		DocumentID:     sc.doc.ID,
		Text:           text,
		Index:          sc.index,
		CharCount:      chars,
		TokenCount:     toks,
		Overlap:        utf8.RuneCountInString(prefix),
		BoundaryForced: forced,
	}
	sc.prev = text
	sc.index++
	return true
}

// Chunk returns the chunk produced by the last call to Next.
func (sc *Scanner) Chunk() domain.Chunk {
	return sc.cur
}

// tailRunes returns the last n runes of s.
func tailRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}

// trimFirstRune drops the leading rune of s.
func trimFirstRune(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}
