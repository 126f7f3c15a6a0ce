// Package chunker splits raw document text into overlapping fragments
// bounded by a character budget, preferring semantic boundaries.
package chunker

import "strings"

// DefaultChunkSize is the default number of characters per fragment.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Fragment is one piece of split text with its position in the sequence
// produced from a single document.
type Fragment struct {
	Text     string
	Sequence int
}

// Splitter cuts text into fragments of at most chunkSize characters,
// with consecutive fragments sharing exactly overlap characters.
// Splitting is deterministic: identical input and settings always
// produce identical output.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the fragment size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between fragments in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap > 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for the fragment to advance
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured fragment size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts text into fragments. Sizes are measured in runes so
// multi-byte characters are never split. Empty or whitespace-only text
// yields no fragments; text within the size budget yields exactly one.
//
// Each fragment is a contiguous slice of the trimmed input and the next
// fragment starts exactly overlap runes before the previous cut, so
// adjacent fragments share exactly overlap runes of context.
func (s *Splitter) Split(text string) []Fragment {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []Fragment{{Text: string(runes), Sequence: 0}}
	}

	estimated := len(runes)/(s.chunkSize-s.overlap) + 1
	frags := make([]Fragment, 0, estimated)

	start := 0
	for seq := 0; ; seq++ {
		end := start + s.chunkSize
		if end >= len(runes) {
			frags = append(frags, Fragment{Text: string(runes[start:]), Sequence: seq})
			return frags
		}

		end = s.cut(runes, start, end)
		frags = append(frags, Fragment{Text: string(runes[start:end]), Sequence: seq})
		start = end - s.overlap
	}
}

// cut picks the fragment end in (start+overlap, limit], preferring the
// boundary closest to limit in descending order of strength: paragraph
// break, sentence end, line break, whitespace, hard cut.
func (s *Splitter) cut(runes []rune, start, limit int) int {
	floor := start + s.overlap + 1

	// Paragraph break: cut just after a blank line.
	for i := limit; i > floor; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}

	// Sentence end: cut after ". ", "! " or "? ".
	for i := limit; i > floor; i-- {
		if runes[i-1] == ' ' && isSentenceEnd(runes[i-2]) {
			return i
		}
	}

	// Line break.
	for i := limit; i > floor; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}

	// Any whitespace.
	for i := limit; i > floor; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\t' {
			return i
		}
	}

	// Hard cut.
	return limit
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
