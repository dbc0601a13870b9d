package lexicon

import "testing"

func testLexicon() *Lexicon {
	return NewFromWords([]string{"the", "a", "an", "of", "and", "is"})
}

func TestAcceptToken(t *testing.T) {
	lex := testLexicon()

	tests := []struct {
		name string
		word string
		want bool
	}{
		{"valid word", "hello", true},
		{"too short", "cat", false},
		{"too long", "a123456789012345678901234567890123456789012345678901234567890123456789", false},
		{"stopword", "the", false},
		{"exact min length", "cats", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lex.AcceptToken(tt.word); got != tt.want {
				t.Errorf("AcceptToken(%q) = %v, want %v", tt.word, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	lex := testLexicon()

	got := lex.Tokenize("Hello, World! The cats sat on a mat.")
	want := []string{"hello", "world", "cats"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizeSpan(t *testing.T) {
	lex := testLexicon()

	got := lex.TokenizeSpan("hello world")
	if len(got) != 2 {
		t.Fatalf("TokenizeSpan() returned %d tokens, want 2", len(got))
	}
	if got[0].Text != "hello" || got[0].Offset != 0 {
		t.Errorf("token 0 = %+v, want {hello 0}", got[0])
	}
	if got[1].Text != "world" || got[1].Offset != 6 {
		t.Errorf("token 1 = %+v, want {world 6}", got[1])
	}
}

func TestWordFrequencySpans(t *testing.T) {
	lex := testLexicon()

	tokens := lex.TokenizeSpan("hello world hello")
	freq := lex.WordFrequencySpans(tokens)

	hello, ok := freq["hello"]
	if !ok {
		t.Fatal("expected lemma \"hello\" in frequency map")
	}
	if hello.Count != 2 {
		t.Errorf("hello count = %d, want 2", hello.Count)
	}
	if len(hello.Offsets) != hello.Count {
		t.Errorf("len(offsets) = %d, want %d (must equal natural_freq)", len(hello.Offsets), hello.Count)
	}
	for i := 1; i < len(hello.Offsets); i++ {
		if hello.Offsets[i] <= hello.Offsets[i-1] {
			t.Errorf("offsets not strictly increasing: %v", hello.Offsets)
		}
	}
}

func TestBigramFreq(t *testing.T) {
	lex := testLexicon()

	freq := lex.BigramFreq("machine learning systems")
	first := lex.Lemmatize("machine") + lex.Lemmatize("learning")
	second := lex.Lemmatize("learning") + lex.Lemmatize("systems")
	if freq[first] != 1 {
		t.Errorf("bigram %q count = %d, want 1", first, freq[first])
	}
	if freq[second] != 1 {
		t.Errorf("bigram %q count = %d, want 1", second, freq[second])
	}
}

func TestBigramFreqSingleToken(t *testing.T) {
	lex := testLexicon()

	freq := lex.BigramFreq("hello")
	if len(freq) != 0 {
		t.Errorf("expected no bigrams from a single token, got %v", freq)
	}
}
