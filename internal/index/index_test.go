package index

import (
	"testing"

	"github.com/adrianmoreno/corpussearch/internal/htmlfield"
	"github.com/adrianmoreno/corpussearch/internal/lexicon"
)

func testLexicon() *lexicon.Lexicon {
	return lexicon.NewFromWords([]string{"the", "a", "an", "of", "and", "is", "in"})
}

func strptr(s string) *string { return &s }

func TestBuild_TitleWeightUnconditional(t *testing.T) {
	lex := testLexicon()
	fields := &htmlfield.Fields{
		Title: strptr("apple"),
		Body:  "",
	}
	doc := Build(lex, fields)

	var apple *UnigramTerm
	for i := range doc.Unigrams {
		if doc.Unigrams[i].Term == lex.Lemmatize("apple") {
			apple = &doc.Unigrams[i]
		}
	}
	if apple == nil {
		t.Fatal("expected a posting for \"apple\"")
	}
	if apple.WeightedFreq != WeightTitle {
		t.Errorf("WeightedFreq = %d, want %d (title weight applied unconditionally)", apple.WeightedFreq, WeightTitle)
	}
	if apple.NaturalFreq != 1 {
		t.Errorf("NaturalFreq = %d, want 1", apple.NaturalFreq)
	}
}

func TestBuild_TitleOffsetShift(t *testing.T) {
	lex := testLexicon()
	fields := &htmlfield.Fields{
		Title: strptr("apple"),
		Body:  "apple",
	}
	doc := Build(lex, fields)

	lemma := lex.Lemmatize("apple")
	var term *UnigramTerm
	for i := range doc.Unigrams {
		if doc.Unigrams[i].Term == lemma {
			term = &doc.Unigrams[i]
		}
	}
	if term == nil {
		t.Fatal("expected a posting for \"apple\"")
	}
	if len(term.PositionalIdx) != 2 {
		t.Fatalf("PositionalIdx = %v, want 2 entries", term.PositionalIdx)
	}
	if term.PositionalIdx[0] >= term.PositionalIdx[1] {
		t.Errorf("PositionalIdx = %v, want strictly increasing (body shifted past title)", term.PositionalIdx)
	}
	if term.PositionalIdx[1] < len("apple") {
		t.Errorf("body offset %d was not shifted past the title", term.PositionalIdx[1])
	}
}

func TestBuild_BigramTitleBoost(t *testing.T) {
	lex := testLexicon()
	fields := &htmlfield.Fields{
		Title: strptr("machine learning"),
		Body:  "machine learning systems",
	}
	doc := Build(lex, fields)

	bigram := lex.Lemmatize("machine") + lex.Lemmatize("learning")
	got, ok := doc.Bigrams[bigram]
	if !ok {
		t.Fatalf("expected bigram %q in result, got %v", bigram, doc.Bigrams)
	}
	// body contributes 1 occurrence, title match adds WeightTitle.
	if got != 1+WeightTitle {
		t.Errorf("bigram count = %d, want %d", got, 1+WeightTitle)
	}
}

func TestTitleSnippet_Priority(t *testing.T) {
	tests := []struct {
		name        string
		fields      *htmlfield.Fields
		wantTitle   string
		wantSnippet string
	}{
		{
			name:        "title and paragraph present",
			fields:      &htmlfield.Fields{Title: strptr("My Title"), Paragraph: strptr("A paragraph."), Body: "body text"},
			wantTitle:   "My Title",
			wantSnippet: "A paragraph.",
		},
		{
			name:        "title missing, body and paragraph present",
			fields:      &htmlfield.Fields{Body: "Body text here", Paragraph: strptr("A paragraph.")},
			wantTitle:   "Body text here",
			wantSnippet: "A paragraph.",
		},
		{
			name:        "paragraph missing, title and body present",
			fields:      &htmlfield.Fields{Title: strptr("My Title"), Body: "fallback body text"},
			wantTitle:   "My Title",
			wantSnippet: "fallback body text",
		},
		{
			name:        "title only, no body no paragraph",
			fields:      &htmlfield.Fields{Title: strptr("Only Title")},
			wantTitle:   "Only Title",
			wantSnippet: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, snippet := titleSnippet(tt.fields)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if snippet != tt.wantSnippet {
				t.Errorf("snippet = %q, want %q", snippet, tt.wantSnippet)
			}
		})
	}
}

func TestNormalize_TruncatesAndStripsNonASCII(t *testing.T) {
	got := normalize("héllo   world\n\tagain", 8)
	if len(got) > 8 {
		t.Errorf("normalize() = %q, exceeds max length 8", got)
	}
}
