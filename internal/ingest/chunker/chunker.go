// Package chunker splits raw text into bounded, overlapping chunks. It is a
// pure function of its inputs: no I/O, no shared state, deterministic.
//
// Text is split into fragments at sentence-ending punctuation followed by
// whitespace, and at newlines. Fragments are greedily packed into chunks of
// at most size characters; each new chunk is seeded with the trailing
// overlap characters of the previous one so retrieval keeps context across
// chunk boundaries.
package chunker

import (
	"strings"
	"unicode"
)

// Chunk splits text into ordered chunks of roughly size bytes with the
// given byte overlap. A chunk seeded with overlap can run to size plus
// overlap plus the joining space, and a single fragment longer than size is
// emitted whole. The overlap seed slices bytes, so it can start mid-rune in
// multibyte text. Empty input yields no chunks. Text without any fragment
// boundary degrades to a single chunk containing the whole text.
func Chunk(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}

	fragments := splitFragments(text)
	if len(fragments) == 0 {
		return []string{text}
	}

	var chunks []string
	var current string
	for _, frag := range fragments {
		candidate := frag
		if current != "" {
			candidate = current + " " + frag
		}
		if len(candidate) <= size {
			current = candidate
			continue
		}
		if current != "" {
			chunks = append(chunks, current)
		}
		if overlap > 0 && len(current) > overlap {
			current = current[len(current)-overlap:] + " " + frag
		} else {
			current = frag
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// splitFragments cuts text at sentence boundaries (., !, ? followed by
// whitespace) and at newlines, keeping the punctuation attached to its
// sentence and discarding empty fragments.
func splitFragments(text string) []string {
	var fragments []string
	var b strings.Builder

	flush := func() {
		frag := strings.TrimSpace(b.String())
		if frag != "" {
			fragments = append(fragments, frag)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if isSentenceEnd(r) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()
	return fragments
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
