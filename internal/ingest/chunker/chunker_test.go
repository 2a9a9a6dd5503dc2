package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunkEmptyInput(t *testing.T) {
	if got := Chunk("", 100, 10); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := Chunk("   \n\t ", 100, 10); got != nil {
		t.Errorf("expected nil for whitespace input, got %v", got)
	}
}

func TestChunkSingleSentences(t *testing.T) {
	got := Chunk("A. B. C.", 2, 0)
	want := []string{"A.", "B.", "C."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk(\"A. B. C.\", 2, 0) = %v, want %v", got, want)
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := "The cat sat. The dog ran! Was it fun? Yes.\nA new line here. And more text follows."
	first := Chunk(text, 30, 10)
	second := Chunk(text, 30, 10)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("chunking is not deterministic: %v vs %v", first, second)
	}
}

func TestChunkLengthBound(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 50)
	size, overlap := 80, 20
	// The overlap seed is joined to the next fragment with a space, so the
	// bound is one byte past size+overlap.
	for i, c := range Chunk(text, size, overlap) {
		if len(c) > size+overlap+1 {
			t.Errorf("chunk %d has length %d, want <= %d: %q", i, len(c), size+overlap+1, c)
		}
	}
}

func TestChunkOverlapJoinExceedsSize(t *testing.T) {
	// Two 10-byte sentences at size 10, overlap 4: the second chunk carries
	// the 4-byte seed, the joining space, and the full fragment, 15 bytes.
	got := Chunk("abcdefghi. abcdefghi.", 10, 4)
	want := []string{"abcdefghi.", "ghi. abcdefghi."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk = %v, want %v", got, want)
	}
	if len(got[1]) != 15 {
		t.Errorf("second chunk length = %d, want 15 (size+overlap+1)", len(got[1]))
	}
}

func TestChunkOversizedFragmentEmittedWhole(t *testing.T) {
	long := strings.Repeat("x", 40)
	got := Chunk(long+". Tail.", 10, 0)
	if len(got) == 0 || got[0] != long+"." {
		t.Fatalf("chunks = %v, want the oversized sentence kept intact", got)
	}
}

func TestChunkOverlapContinuity(t *testing.T) {
	text := strings.Repeat("Something happened today. ", 30)
	size, overlap := 100, 25
	chunks := Chunk(text, size, overlap)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		if len(chunks[i]) <= overlap {
			continue
		}
		suffix := chunks[i][len(chunks[i])-overlap:]
		if !strings.HasPrefix(chunks[i+1], suffix) {
			t.Errorf("chunk %d does not start with the %d-char suffix of chunk %d:\nsuffix: %q\nnext:   %q",
				i+1, overlap, i, suffix, chunks[i+1])
		}
	}
}

func TestChunkNoBoundaryFallback(t *testing.T) {
	text := strings.Repeat("abcdefghij", 20) // no punctuation, no newlines
	got := Chunk(text, 50, 10)
	if len(got) != 1 || got[0] != text {
		t.Errorf("expected whole text as single chunk, got %d chunks", len(got))
	}
}

func TestChunkNewlineBoundaries(t *testing.T) {
	got := Chunk("first line\nsecond line\nthird line", 12, 0)
	want := []string{"first line", "second line", "third line"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("newline splitting = %v, want %v", got, want)
	}
}

func TestChunkGreedyAccumulation(t *testing.T) {
	// Both sentences fit together under the size limit.
	got := Chunk("Hi there. Bye now.", 50, 0)
	want := []string{"Hi there. Bye now."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("greedy accumulation = %v, want %v", got, want)
	}
}

func TestChunkPunctuationInsideWordNotBoundary(t *testing.T) {
	// A period not followed by whitespace must not split.
	got := Chunk("visit example.com for details", 100, 0)
	if len(got) != 1 {
		t.Errorf("expected 1 chunk, got %v", got)
	}
}
