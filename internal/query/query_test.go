package query

import (
	"context"
	"testing"

	"github.com/adrianmoreno/corpussearch/internal/htmlfield"
	"github.com/adrianmoreno/corpussearch/internal/index"
	"github.com/adrianmoreno/corpussearch/internal/lexicon"
	"github.com/adrianmoreno/corpussearch/internal/repository"
	"github.com/adrianmoreno/corpussearch/internal/scorer"
)

func testLexicon() *lexicon.Lexicon {
	return lexicon.NewFromWords([]string{"the", "a", "an", "of", "and", "is", "in"})
}

// indexDoc runs a body string through the index builder and writes the
// resulting postings into repo, mirroring what internal/ingest does for a
// real corpus page.
func indexDoc(t *testing.T, ctx context.Context, repo repository.Repository, lex *lexicon.Lexicon, pathID, url string, title *string, body string) {
	t.Helper()
	if err := repo.PutDocument(ctx, pathID, url); err != nil {
		t.Fatal(err)
	}
	doc := index.Build(lex, &htmlfield.Fields{Title: title, Body: body})
	if err := repo.SetTitleSnippet(ctx, pathID, doc.Title, doc.Snippet); err != nil {
		t.Fatal(err)
	}
	for _, u := range doc.Unigrams {
		if err := repo.UpsertUnigramPosting(ctx, u.Term, pathID, u.NaturalFreq, u.PositionalIdx, u.WeightedFreq); err != nil {
			t.Fatal(err)
		}
	}
	for b, c := range doc.Bigrams {
		if err := repo.UpsertBigramPosting(ctx, b, pathID, c); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearch_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	engine := New(repo, testLexicon())
	if err := engine.Preload(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Search(ctx, "anything", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.NumberResultsFound != 0 || len(resp.Results) != 0 {
		t.Errorf("resp = %+v, want empty", resp)
	}
}

func TestSearch_SingleDocZeroIDFStillRanksByAuthority(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	lex := testLexicon()

	indexDoc(t, ctx, repo, lex, "0/0", "doc0", nil, "Hello world hello")
	if err := scorer.ScoreUnigrams(ctx, repo); err != nil {
		t.Fatal(err)
	}
	if err := scorer.ScoreBigrams(ctx, repo); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetAuthority(ctx, "doc0", 0.5); err != nil {
		t.Fatal(err)
	}

	engine := New(repo, lex)
	if err := engine.Preload(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Search(ctx, "hello", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.NumberResultsFound != 1 {
		t.Fatalf("resp.NumberResultsFound = %d, want 1", resp.NumberResultsFound)
	}
}

func TestSearch_TitleWeightOutranksBodyOnly(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	lex := testLexicon()

	title := "apple"
	indexDoc(t, ctx, repo, lex, "0/0", "doc0", nil, "apple banana")
	indexDoc(t, ctx, repo, lex, "0/1", "doc1", &title, "")
	// doc2 never mentions "apple": with only two documents containing the
	// term, idf(apple) would collapse to log10(N/df) = log10(2/2) = 0 and
	// wash out the title-weight effect this test exists to check.
	indexDoc(t, ctx, repo, lex, "0/2", "doc2", nil, "banana cherry")

	if err := scorer.ScoreUnigrams(ctx, repo); err != nil {
		t.Fatal(err)
	}
	if err := scorer.ScoreBigrams(ctx, repo); err != nil {
		t.Fatal(err)
	}
	for _, u := range []string{"doc0", "doc1", "doc2"} {
		if err := repo.SetAuthority(ctx, u, 0); err != nil {
			t.Fatal(err)
		}
	}

	engine := New(repo, lex)
	if err := engine.Preload(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Search(ctx, "apple", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("resp.Results = %v, want 2", resp.Results)
	}
	if resp.Results[0].URL != "doc1" {
		t.Errorf("Results[0].URL = %q, want doc1 (title weight ranks it first)", resp.Results[0].URL)
	}
}

func TestSearch_CacheHitPaginatesWithoutRerank(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	lex := testLexicon()
	indexDoc(t, ctx, repo, lex, "0/0", "doc0", nil, "apple banana cherry")
	if err := scorer.ScoreUnigrams(ctx, repo); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetAuthority(ctx, "doc0", 0); err != nil {
		t.Fatal(err)
	}

	engine := New(repo, lex)
	if err := engine.Preload(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := engine.Search(ctx, "apple banana", 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := engine.Search(ctx, "apple banana", 0)
	if err != nil {
		t.Fatal(err)
	}
	if first.NumberResultsFound != second.NumberResultsFound {
		t.Errorf("cached result mismatch: %d vs %d", first.NumberResultsFound, second.NumberResultsFound)
	}
}
