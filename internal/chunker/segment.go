package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// unit is an indivisible run of text for packing purposes. Units
// never straddle a natural boundary and, except for forced pieces in
// degenerate budgets, always fit the dual budget on their own. A
// boundary unit closes its chunk: in-budget paragraphs and sentences
// each stand alone; only whitespace-level pieces pack together.
type unit struct {
	text     string
	chars    int
	tokens   int
	forced   bool
	boundary bool
}

// Sentence terminators. Western and CJK forms, matching the kinds of
// corpora the store serves.
const sentenceEnds = ".!?;。！？；\n"

// segment breaks content into packable units. Paragraphs that fit
// the budget stay whole; oversized paragraphs are cut at sentence
// ends, oversized sentences at whitespace, and unbreakable runs at
// the hard character limit (marked forced). Every rune of content is
// preserved across the returned units.
func (s *Splitter) segment(content string) []unit {
	if content == "" {
		return nil
	}

	var units []unit
	for _, para := range splitParagraphs(content) {
		if s.fits(para) {
			u := s.unitOf(para, false)
			u.boundary = true
			units = append(units, u)
			continue
		}
		units = append(units, s.segmentSentences(para)...)
	}
	return units
}

// segmentSentences cuts a paragraph after sentence terminators,
// descending to whitespace and forced cuts for oversized pieces.
// Each sentence end is a chunk boundary; whitespace pieces inside an
// oversized sentence carry the boundary only on the last piece.
func (s *Splitter) segmentSentences(text string) []unit {
	var units []unit
	for _, sent := range splitAfter(text, isSentenceEnd) {
		if s.fits(sent) {
			u := s.unitOf(sent, false)
			u.boundary = true
			units = append(units, u)
			continue
		}
		start := len(units)
		for _, word := range splitAfter(sent, unicode.IsSpace) {
			if s.fits(word) {
				units = append(units, s.unitOf(word, false))
			} else {
				units = append(units, s.forceCut(word)...)
			}
		}
		if len(units) > start {
			units[len(units)-1].boundary = true
		}
	}
	return units
}

// forceCut slices an unbreakable run into the largest pieces that
// satisfy both budgets. Pieces are flagged so downstream diagnostics
// can audit boundary-forced chunks. Progress is guaranteed: a piece
// is never shorter than one rune, even if a degenerate token budget
// is exceeded by a single rune.
func (s *Splitter) forceCut(text string) []unit {
	var units []unit
	runes := []rune(text)
	for len(runes) > 0 {
		hi := len(runes)
		if hi > s.maxChars {
			hi = s.maxChars
		}
		// Largest prefix within the token budget. Token counts are
		// monotonic in prefix length, so binary search applies.
		lo := 1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if s.counter.Count(string(runes[:mid])) <= s.maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		piece := string(runes[:lo])
		u := s.unitOf(piece, true)
		units = append(units, u)
		runes = runes[lo:]
	}
	return units
}

// fits reports whether text satisfies both budgets on its own.
func (s *Splitter) fits(text string) bool {
	if utf8.RuneCountInString(text) > s.maxChars {
		return false
	}
	return s.counter.Count(text) <= s.maxTokens
}

func (s *Splitter) unitOf(text string, forced bool) unit {
	return unit{
		text:   text,
		chars:  utf8.RuneCountInString(text),
		tokens: s.counter.Count(text),
		forced: forced,
	}
}

func isSentenceEnd(r rune) bool {
	return strings.ContainsRune(sentenceEnds, r)
}

// splitParagraphs cuts content after runs of two or more newlines.
// Separator runs stay attached to the preceding paragraph so that
// concatenating the pieces reproduces content exactly. Pieces that
// are pure whitespace merge into the following paragraph.
func splitParagraphs(content string) []string {
	var paras []string
	start := 0
	i := 0
	for i < len(content) {
		r, size := utf8.DecodeRuneInString(content[i:])
		if r != '\n' {
			i += size
			continue
		}
		// Measure the newline run.
		j := i
		newlines := 0
		for j < len(content) {
			nr, nsize := utf8.DecodeRuneInString(content[j:])
			if nr != '\n' {
				break
			}
			newlines++
			j += nsize
		}
		if newlines >= 2 {
			paras = append(paras, content[start:j])
			start = j
		}
		i = j
	}
	if start < len(content) {
		paras = append(paras, content[start:])
	}

	// Merge whitespace-only pieces forward.
	merged := paras[:0]
	carry := ""
	for _, p := range paras {
		if strings.TrimSpace(p) == "" {
			carry += p
			continue
		}
		merged = append(merged, carry+p)
		carry = ""
	}
	if carry != "" {
		if len(merged) > 0 {
			merged[len(merged)-1] += carry
		} else {
			merged = append(merged, carry)
		}
	}
	return merged
}

// splitAfter cuts text after every rune matching end, attaching any
// spacing that follows the terminator to the preceding piece. All
// runes are preserved.
func splitAfter(text string, end func(rune) bool) []string {
	var pieces []string
	start := 0
	i := 0
	terminated := false
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if terminated {
			if r == ' ' || r == '\t' {
				i += size
				continue
			}
			pieces = append(pieces, text[start:i])
			start = i
			terminated = false
			continue
		}
		if end(r) {
			terminated = true
		}
		i += size
	}
	if start < len(text) {
		pieces = append(pieces, text[start:])
	}
	return pieces
}
