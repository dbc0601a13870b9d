package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrianmoreno/corpussearch/internal/lexicon"
	"github.com/adrianmoreno/corpussearch/internal/repository"
)

func writeCorpus(t *testing.T, dir string, bookkeeping map[string]string, pages map[string]string) {
	t.Helper()
	raw, err := json.Marshal(bookkeeping)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bookkeeping.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	for pathID, html := range pages {
		full := filepath.Join(dir, filepath.FromSlash(pathID))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(html), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadBookkeeping_SortedByBucketThenIndex(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, map[string]string{
		"2/1":  "http://b.com",
		"10/2": "http://c.com",
		"2/10": "http://a.com",
	}, nil)

	entries, err := LoadBookkeeping(dir)
	if err != nil {
		t.Fatalf("LoadBookkeeping() error = %v", err)
	}
	want := []string{"2/1", "2/10", "10/2"}
	if len(entries) != len(want) {
		t.Fatalf("entries = %v, want %d entries", entries, len(want))
	}
	for i, pathID := range want {
		if entries[i].PathID != pathID {
			t.Errorf("entries[%d].PathID = %q, want %q", i, entries[i].PathID, pathID)
		}
	}
}

func TestLoadBookkeeping_MissingFileIsFatal(t *testing.T) {
	if _, err := LoadBookkeeping(t.TempDir()); err == nil {
		t.Error("LoadBookkeeping() error = nil, want error for missing bookkeeping.json")
	}
}

func TestRun_IndexesScoresAndRanksCorpus(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir,
		map[string]string{
			"0/0": "http://a.com",
			"0/1": "http://b.com",
		},
		map[string]string{
			"0/0": `<html><head><title>Apple Orchard</title></head><body><p>apple trees grow here</p><a href="http://b.com">visit b</a></body></html>`,
			"0/1": `<html><head><title>Banana Farm</title></head><body><p>bananas and apple pie</p></body></html>`,
		},
	)

	repo := repository.NewMemory()
	lex := lexicon.NewFromWords([]string{"the", "a", "an", "and", "of"})

	summary, err := Run(context.Background(), Options{
		CorpusDir: dir,
		Repo:      repo,
		Lexicon:   lex,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.DocumentsTotal != 2 {
		t.Errorf("DocumentsTotal = %d, want 2", summary.DocumentsTotal)
	}
	if summary.DocumentsIndexed != 2 {
		t.Errorf("DocumentsIndexed = %d, want 2", summary.DocumentsIndexed)
	}
	if summary.DocumentErrors != 0 {
		t.Errorf("DocumentErrors = %d, want 0", summary.DocumentErrors)
	}
	if summary.DocumentsRanked != 2 {
		t.Errorf("DocumentsRanked = %d, want 2", summary.DocumentsRanked)
	}

	ctx := context.Background()
	docA, ok, err := repo.GetDocumentByURL(ctx, "http://a.com")
	if err != nil || !ok {
		t.Fatalf("GetDocumentByURL(a.com) = %v, %v, %v", docA, ok, err)
	}
	if docA.Title == "" {
		t.Error("doc a.com has empty title, want non-empty")
	}

	n, err := repo.DistinctDocCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("DistinctDocCount() = %d, want 2", n)
	}

	term := lex.Lemmatize("apple")
	postings, err := repo.TermPostings(ctx, term)
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 2 {
		t.Errorf("TermPostings(%q) = %v, want postings in both documents", term, postings)
	}
}

func TestRun_SkipsUnreadableDocumentWithoutAbortingBatch(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir,
		map[string]string{
			"0/0": "http://a.com",
			"0/1": "http://ghost.com",
		},
		map[string]string{
			"0/0": `<html><head><title>Fine</title></head><body><p>hello world</p></body></html>`,
			// 0/1 intentionally has no file on disk.
		},
	)

	repo := repository.NewMemory()
	lex := lexicon.NewFromWords(nil)

	summary, err := Run(context.Background(), Options{
		CorpusDir: dir,
		Repo:      repo,
		Lexicon:   lex,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.DocumentsIndexed != 1 {
		t.Errorf("DocumentsIndexed = %d, want 1", summary.DocumentsIndexed)
	}
	if summary.DocumentErrors != 1 {
		t.Errorf("DocumentErrors = %d, want 1", summary.DocumentErrors)
	}
}
