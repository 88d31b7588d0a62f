package indexer

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewChunker_validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 100, 20, false},
		{"zero overlap", 100, 0, false},
		{"overlap equals size", 100, 100, true},
		{"overlap larger than size", 50, 80, true},
		{"negative overlap", 100, -1, true},
		{"zero size", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestChunker_SplitConcreteExample(t *testing.T) {
	c, err := NewChunker(60, 20, WithMinChunkLength(0))
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("Alpha beta gamma delta. ", 3)
	chunks := c.Split(text)
	want := []string{
		"Alpha beta gamma delta. Alpha beta gamma delta.",
		"Alpha beta gamma delta.",
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("Split = %q, want %q", chunks, want)
	}
}

func TestChunker_SplitDropsShortChunks(t *testing.T) {
	c, err := NewChunker(60, 20)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Split(strings.Repeat("Alpha beta gamma delta. ", 3)); len(got) != 0 {
		t.Errorf("expected every chunk of <= 50 chars to be dropped, got %q", got)
	}
}

func TestChunker_SplitEmpty(t *testing.T) {
	c, _ := NewChunker(100, 10)
	for _, in := range []string{"", "   \n\t  "} {
		if got := c.Split(in); got != nil {
			t.Errorf("Split(%q) = %q, want nil", in, got)
		}
	}
}

func TestChunker_OverlapTail(t *testing.T) {
	c, _ := NewChunker(100, 20)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short text kept whole", "tiny text. ", "tiny text. "},
		{"boundary in second half", "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx. The end. ", ""},
		{"boundary in first half", "0123456789012345678901. abcdefghijklmnopq", "1. abcdefghijklmnopq"},
		{"no boundary", strings.Repeat("w", 30), strings.Repeat("w", 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.overlapTail(tt.in); got != tt.want {
				t.Errorf("overlapTail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunker_SplitBoundAndCoverage(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" talks about retrieval and chunking. ")
	}
	text := b.String()
	sentences := SplitSentences(text)
	longest := 0
	for _, s := range sentences {
		if len(s) > longest {
			longest = len(s)
		}
	}

	c, err := NewChunker(200, 40)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks[:len(chunks)-1] {
		if len(ch) > 200+longest {
			t.Errorf("chunk %d has length %d, bound is %d", i, len(ch), 200+longest)
		}
	}

	// Every sentence appears, in order, in the chunk sequence.
	joined := strings.Join(chunks, " ")
	pos := 0
	for _, s := range sentences {
		idx := strings.Index(joined[pos:], strings.TrimSpace(s))
		if idx < 0 {
			t.Fatalf("sentence %q missing or out of order", s)
		}
		pos += idx
	}
}

func TestChunker_SplitDeterministic(t *testing.T) {
	c, _ := NewChunker(120, 30)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog! Is it quick? It is. ", 10)
	first := c.Split(text)
	for i := 0; i < 3; i++ {
		if got := c.Split(text); !reflect.DeepEqual(got, first) {
			t.Fatal("Split is not deterministic")
		}
	}
}

func TestChunker_Chunk(t *testing.T) {
	c, _ := NewChunker(80, 10)
	text := strings.Repeat("This sentence is long enough to be kept as part of a chunk. ", 6)
	chunks := c.Chunk("doc1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.DocumentID != "doc1" {
			t.Errorf("chunk %d DocumentID=%s", i, ch.DocumentID)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex=%d", i, ch.ChunkIndex)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("One.  Two!\nThree? Four e.g.five")
	want := []string{"One. ", "Two! ", "Three? ", "Four e.g.five "}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSentences = %q, want %q", got, want)
	}
}

func TestCleanText(t *testing.T) {
	in := "  “Quoted”  text\n\n\n\nnext – part — end\x07  "
	want := "\"Quoted\" text\n\nnext - part -- end"
	if got := CleanText(in); got != want {
		t.Errorf("CleanText = %q, want %q", got, want)
	}
	if CleanText("") != "" {
		t.Error("empty stays empty")
	}
}
