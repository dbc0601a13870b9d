// Package repository defines the storage-facing data model and the
// abstract interface the indexing pipeline and query engine depend on.
// Two implementations are provided: an in-memory store for tests and small
// corpora, and a BadgerDB-backed store for persistent on-disk corpora.
package repository

import "context"

// Document is a single corpus entry: its bookkeeping URL plus the
// title/snippet/authority derived during ingestion.
type Document struct {
	PathID    string
	URL       string
	Title     string
	Snippet   string
	Authority float64
}

// UnigramPosting records one term's occurrence in one document.
type UnigramPosting struct {
	Term          string
	PathID        string
	NaturalFreq   int
	PositionalIdx []int
	WeightedFreq  int
	TF            float64
	TFIDF         float64
}

// BigramPosting records one bigram's occurrence in one document.
type BigramPosting struct {
	Bigram       string
	PathID       string
	BigramWtFreq int
	TF           float64
	TFIDF        float64
}

// TermStats is a term's corpus-wide statistics.
type TermStats struct {
	Term string
	IDF  float64
	DF   int
}

// BigramStats is a bigram's corpus-wide statistics.
type BigramStats struct {
	Bigram string
	IDF    float64
	DF     int
}

// DocCandidate is one row of the documents_with_any aggregate: a document
// hit by at least one query term, with enough aggregate data for the query
// engine to rank without a second round trip.
type DocCandidate struct {
	PathID   string
	DocCount int
	SumTFIDF float64
	Len      float64
}

// Repository is the abstract storage surface consumed by the indexing
// pipeline (writes) and the query engine (reads). Implementations need not
// share a backing technology; the core never type-asserts against a
// concrete store.
type Repository interface {
	// Write side, used by internal/ingest and internal/scorer.

	PutDocument(ctx context.Context, pathID, url string) error
	SetTitleSnippet(ctx context.Context, pathID, title, snippet string) error
	SetAuthority(ctx context.Context, url string, score float64) error

	UpsertUnigramPosting(ctx context.Context, term, pathID string, naturalFreq int, positionalIdx []int, weightedFreq int) error
	UpsertBigramPosting(ctx context.Context, bigram, pathID string, bigramWtFreq int) error

	SetTermStats(ctx context.Context, term string, idf float64, df int) error
	SetPostingScores(ctx context.Context, term, pathID string, tf, tfidf float64) error
	SetBigramStats(ctx context.Context, bigram string, idf float64, df int) error
	SetBigramPostingScores(ctx context.Context, bigram, pathID string, tf, tfidf float64) error

	// Read side, used by internal/query and internal/scorer.

	ListTermsAlpha(ctx context.Context) ([]string, error)
	ListBigramsAlpha(ctx context.Context) ([]string, error)
	DistinctDocCount(ctx context.Context) (int, error)
	DistinctBigramDocCount(ctx context.Context) (int, error)
	PostingCounts(ctx context.Context) (map[string]int, error)
	BigramPostingCounts(ctx context.Context) (map[string]int, error)
	WeightedFreqs(ctx context.Context, term string) (map[string]int, error)
	BigramFreqs(ctx context.Context, bigram string) (map[string]int, error)
	TermPostings(ctx context.Context, term string) (map[string]UnigramPosting, error)
	BigramPostings(ctx context.Context, bigram string) (map[string]BigramPosting, error)
	DocumentsWithAny(ctx context.Context, terms []string) ([]DocCandidate, error)
	AllDocuments(ctx context.Context) ([]Document, error)
	GetDocument(ctx context.Context, pathID string) (Document, bool, error)
	GetDocumentByURL(ctx context.Context, url string) (Document, bool, error)

	// Close releases any resources held by the implementation (file
	// handles, open database, connection pools).
	Close() error
}
