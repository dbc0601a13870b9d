// Package ingest drives the full build-time pipeline: load the
// bookkeeping mapping, analyze and index every document in parallel,
// score the resulting postings, and compute link authority. It is the
// only package that writes to a Repository during a corpus build.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/adrianmoreno/corpussearch/internal/htmlfield"
	"github.com/adrianmoreno/corpussearch/internal/index"
	"github.com/adrianmoreno/corpussearch/internal/lexicon"
	"github.com/adrianmoreno/corpussearch/internal/linkgraph"
	"github.com/adrianmoreno/corpussearch/internal/repository"
	"github.com/adrianmoreno/corpussearch/internal/scorer"
	"github.com/adrianmoreno/corpussearch/internal/spinner"
)

// Options configures one Run invocation.
type Options struct {
	CorpusDir string
	Repo      repository.Repository
	Lexicon   *lexicon.Lexicon
	Logger    *slog.Logger
	// Progress, if non-nil, receives a spinner with running document
	// counts. Pass nil (or io.Discard) for non-interactive runs.
	Progress io.Writer
}

// Summary reports what a Run did.
type Summary struct {
	BatchID           string
	DocumentsTotal    int
	DocumentsIndexed  int
	DocumentErrors    int
	UnigramTermsScore int
	BigramTermsScore  int
	DocumentsRanked   int
}

// analyzeResult is one worker's output for one bookkeeping entry.
type analyzeResult struct {
	entry Entry
	doc   index.Document
	err   error
}

// Run loads bookkeeping.json under opts.CorpusDir, analyzes and indexes
// every document (in parallel, writes serialized through a single
// collector goroutine per spec.md §5), then runs the scorer and
// link-graph authority passes. A missing or malformed bookkeeping file, or
// a failure of the scoring or authority pass, ends the run with an error;
// per-document failures are logged and skipped so the indexing stage
// finishes with partial coverage rather than aborting.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	batchID := uuid.New().String()
	logger = logger.With("batch_id", batchID)

	entries, err := LoadBookkeeping(opts.CorpusDir)
	if err != nil {
		return nil, fmt.Errorf("load bookkeeping: %w", err)
	}
	logger.Info("ingest starting", "documents", len(entries))

	sp := spinner.New(ctx, progress, fmt.Sprintf("indexing 0/%d documents", len(entries)))
	sp.Start()

	summary, err := indexDocuments(ctx, opts, logger, sp, entries)
	sp.Stop()
	if err != nil {
		return nil, err
	}
	summary.BatchID = batchID
	summary.DocumentsTotal = len(entries)

	logger.Info("scoring unigram postings")
	if err := scorer.ScoreUnigrams(ctx, opts.Repo); err != nil {
		return summary, fmt.Errorf("score unigrams: %w", err)
	}
	logger.Info("scoring bigram postings")
	if err := scorer.ScoreBigrams(ctx, opts.Repo); err != nil {
		return summary, fmt.Errorf("score bigrams: %w", err)
	}

	ranked, err := computeAuthority(ctx, opts, logger, entries)
	if err != nil {
		return summary, fmt.Errorf("compute authority: %w", err)
	}
	summary.DocumentsRanked = ranked

	logger.Info("ingest complete",
		"documents_indexed", summary.DocumentsIndexed,
		"document_errors", summary.DocumentErrors,
		"documents_ranked", summary.DocumentsRanked,
	)
	return summary, nil
}

// indexDocuments runs the per-document analyze-and-index stage with a
// bounded worker pool (modeled on the reference corpus's
// Corpus.searchParallel), then serializes all repository writes through
// a single collector goroutine so postings appends are never interleaved
// for the same term across goroutines.
func indexDocuments(ctx context.Context, opts Options, logger *slog.Logger, sp *spinner.Spinner, entries []Entry) (*Summary, error) {
	numWorkers := runtime.NumCPU()
	if numWorkers > len(entries) {
		numWorkers = len(entries)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	jobs := make(chan Entry, len(entries))
	results := make(chan analyzeResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				fields, analyzeErr := htmlfield.Analyze(entry.FilePath)
				if analyzeErr != nil {
					results <- analyzeResult{entry: entry, err: analyzeErr}
					continue
				}
				doc := index.Build(opts.Lexicon, fields)
				results <- analyzeResult{entry: entry, doc: doc}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			jobs <- entry
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	done := 0
	for result := range results {
		done++
		sp.UpdateMessage(fmt.Sprintf("indexing %d/%d documents", done, len(entries)))

		if result.err != nil {
			summary.DocumentErrors++
			logger.Error("analyze document failed", "path_id", result.entry.PathID, "file", result.entry.FilePath, "error", result.err)
			// still record the document in the documents store, with no
			// textual contribution.
			if err := opts.Repo.PutDocument(ctx, result.entry.PathID, result.entry.URL); err != nil {
				logger.Error("put document failed", "path_id", result.entry.PathID, "error", err)
			}
			continue
		}

		if err := writeDocument(ctx, opts.Repo, result.entry, result.doc); err != nil {
			summary.DocumentErrors++
			logger.Error("write document postings failed", "path_id", result.entry.PathID, "error", err)
			continue
		}
		summary.DocumentsIndexed++
	}

	return summary, nil
}

// writeDocument persists one analyzed document's title/snippet and
// postings. Errors here are per-operation and logged by the caller, never
// retried, per spec.md §7's bulk-write policy.
func writeDocument(ctx context.Context, repo repository.Repository, entry Entry, doc index.Document) error {
	if err := repo.PutDocument(ctx, entry.PathID, entry.URL); err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	if err := repo.SetTitleSnippet(ctx, entry.PathID, doc.Title, doc.Snippet); err != nil {
		return fmt.Errorf("set title/snippet: %w", err)
	}
	for _, u := range doc.Unigrams {
		if err := repo.UpsertUnigramPosting(ctx, u.Term, entry.PathID, u.NaturalFreq, u.PositionalIdx, u.WeightedFreq); err != nil {
			return fmt.Errorf("upsert unigram posting %q: %w", u.Term, err)
		}
	}
	for bigram, count := range doc.Bigrams {
		if err := repo.UpsertBigramPosting(ctx, bigram, entry.PathID, count); err != nil {
			return fmt.Errorf("upsert bigram posting %q: %w", bigram, err)
		}
	}
	return nil
}

// computeAuthority rereads each document's raw HTML, builds the
// corpus-internal link graph, and persists the resulting authority score
// per URL. It runs after indexing but does not depend on scoring, per
// spec.md §4.6.
func computeAuthority(ctx context.Context, opts Options, logger *slog.Logger, entries []Entry) (int, error) {
	docs := make([]linkgraph.Document, 0, len(entries))
	for _, entry := range entries {
		raw, err := os.ReadFile(entry.FilePath)
		if err != nil {
			logger.Error("read document for link graph failed", "path_id", entry.PathID, "error", err)
			continue
		}
		docs = append(docs, linkgraph.Document{URL: entry.URL, RawHTML: string(raw)})
	}

	scores, err := linkgraph.BuildAuthority(docs)
	if err != nil {
		return 0, fmt.Errorf("build authority: %w", err)
	}

	ranked := 0
	for url, score := range scores {
		select {
		case <-ctx.Done():
			return ranked, ctx.Err()
		default:
		}
		if err := opts.Repo.SetAuthority(ctx, url, score); err != nil {
			logger.Error("set authority failed", "url", url, "error", err)
			continue
		}
		ranked++
	}
	return ranked, nil
}
