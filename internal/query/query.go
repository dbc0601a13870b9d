// Package query implements the free-text query engine: lemmatize the
// query, score candidate documents by cosine similarity over the unigram
// index blended with a bigram bonus, add a scaled authority bonus, and
// paginate the ranked result.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrianmoreno/corpussearch/internal/lexicon"
	"github.com/adrianmoreno/corpussearch/internal/repository"
)

// Tuning constants, named as in the source.
const (
	PageRankMultiplier = 20
	BigramMultiplier   = 0.5
	ResultsDisplayed   = 20
	cacheCapacity      = 32
)

// Result is one document projected for the HTTP surface.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Response is the full answer to one query, before any error wrapping.
type Response struct {
	Results            []Result `json:"results"`
	NumberResultsFound int      `json:"number_results_found"`
	QuerySpeed         float64  `json:"query_speed"`
	SearchLemmatized   []string `json:"search_lemmatized"`
}

// rankedDoc is one scored candidate, ordered by Score desc and cached in
// full (pre-pagination) per query.
type rankedDoc struct {
	PathID string
	Score  float64
}

type docMeta struct {
	URL       string
	Title     string
	Snippet   string
	Authority float64
}

// Engine is the query-time façade over the repository. Term IDFs and
// document metadata are preloaded once (Preload) and held in memory: the
// lemmatizer and stopword set are
// process-wide singletons, and repository reads happen only at Preload
// time and during per-query postings fetches.
type Engine struct {
	repo repository.Repository
	lex  *lexicon.Lexicon

	mu      sync.RWMutex
	termIDF map[string]float64
	docs    map[string]docMeta

	cache *lru
}

// New returns an Engine; call Preload before serving queries.
func New(repo repository.Repository, lex *lexicon.Lexicon) *Engine {
	return &Engine{
		repo:    repo,
		lex:     lex,
		termIDF: make(map[string]float64),
		docs:    make(map[string]docMeta),
		cache:   newLRU(cacheCapacity),
	}
}

// Preload populates the term->idf map and the path_id->document metadata
// map from the repository. Call this once at startup (and again after any
// full rebuild) before serving queries.
func (e *Engine) Preload(ctx context.Context) error {
	n, err := e.repo.DistinctDocCount(ctx)
	if err != nil {
		return fmt.Errorf("preload: distinct doc count: %w", err)
	}
	counts, err := e.repo.PostingCounts(ctx)
	if err != nil {
		return fmt.Errorf("preload: posting counts: %w", err)
	}
	termIDF := make(map[string]float64, len(counts))
	for term, df := range counts {
		if df > 0 {
			termIDF[term] = math.Log10(float64(n) / float64(df))
		}
	}

	docs, err := e.repo.AllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("preload: all documents: %w", err)
	}
	docMap := make(map[string]docMeta, len(docs))
	for _, d := range docs {
		docMap[d.PathID] = docMeta{URL: d.URL, Title: d.Title, Snippet: d.Snippet, Authority: d.Authority}
	}

	e.mu.Lock()
	e.termIDF = termIDF
	e.docs = docMap
	e.mu.Unlock()
	return nil
}

// Search lemmatizes q, scores the corpus, and returns the ranked results
// from offset start, at most ResultsDisplayed of them. An empty index or a query
// with no known terms returns an empty, non-error result.
func (e *Engine) Search(ctx context.Context, q string, start int) (*Response, error) {
	tokens := e.lex.TokenizeSpan(q)
	wordFreq := e.lex.WordFrequencySpans(tokens)
	bigramFreq := e.lex.BigramFreq(q)

	lemmas := make([]string, 0, len(wordFreq))
	for lemma := range wordFreq {
		lemmas = append(lemmas, lemma)
	}
	sort.Strings(lemmas)
	cacheKey := strings.Join(lemmas, "\x00")

	if entry, ok := e.cache.get(cacheKey); ok {
		return e.paginate(entry, start), nil
	}

	started := time.Now()
	ranked, err := e.rank(ctx, tokens, wordFreq, bigramFreq)
	if err != nil {
		return nil, fmt.Errorf("rank query %q: %w", q, err)
	}
	elapsed := time.Since(started).Seconds()

	entry := cacheEntry{ranked: ranked, total: len(ranked), elapsed: elapsed, lemmatized: lemmas}
	e.cache.put(cacheKey, entry)

	return e.paginate(entry, start), nil
}

// paginate projects entry's ranked list into the slice
// [start, start+RESULTS_DISPLAYED), resolving each path_id to its cached
// document metadata.
func (e *Engine) paginate(entry cacheEntry, start int) *Response {
	resp := &Response{
		NumberResultsFound: entry.total,
		QuerySpeed:         entry.elapsed,
		SearchLemmatized:   entry.lemmatized,
	}
	if start < 0 || start >= len(entry.ranked) {
		resp.Results = []Result{}
		return resp
	}
	end := start + ResultsDisplayed
	if end > len(entry.ranked) {
		end = len(entry.ranked)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	resp.Results = make([]Result, 0, end-start)
	for _, r := range entry.ranked[start:end] {
		meta := e.docs[r.PathID]
		resp.Results = append(resp.Results, Result{URL: meta.URL, Title: meta.Title, Snippet: meta.Snippet})
	}
	return resp
}

// rank fetches postings for the query's terms (and, for multi-token
// queries, bigrams), scores every candidate document, and returns them
// sorted by score desc.
func (e *Engine) rank(ctx context.Context, tokens []lexicon.Token, wordFreq map[string]*lexicon.FreqEntry, bigramFreq map[string]int) ([]rankedDoc, error) {
	if len(wordFreq) == 0 {
		return nil, nil
	}

	terms := make([]string, 0, len(wordFreq))
	for t := range wordFreq {
		terms = append(terms, t)
	}

	candidates, err := e.repo.DocumentsWithAny(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("documents with any: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(tokens) == 1 {
		ranked := make([]rankedDoc, 0, len(candidates))
		for _, c := range candidates {
			score := c.SumTFIDF + e.docs[c.PathID].Authority*PageRankMultiplier
			ranked = append(ranked, rankedDoc{PathID: c.PathID, Score: score})
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
		return ranked, nil
	}

	// Multi-token query: compute the query vector's cosine weights, then
	// per-term postings for every candidate, then apply the bigram
	// contraction sequentially per matching bigram.
	termTFIDF := make(map[string]float64, len(wordFreq))
	var qNormSq float64
	for term, freq := range wordFreq {
		tfQ := queryTF(freq.Count)
		idf, known := e.termIDF[term]
		if !known {
			continue // unknown query term contributes nothing to scoring
		}
		tfidf := tfQ * idf
		termTFIDF[term] = tfidf
		qNormSq += tfidf * tfidf
	}
	qNorm := math.Sqrt(qNormSq)

	termPostings := make(map[string]map[string]repository.UnigramPosting, len(terms))
	for _, term := range terms {
		postings, err := e.repo.TermPostings(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("term postings for %q: %w", term, err)
		}
		termPostings[term] = postings
	}

	bigrams := make([]string, 0, len(bigramFreq))
	for b := range bigramFreq {
		bigrams = append(bigrams, b)
	}
	sort.Strings(bigrams)
	bigramPostings := make(map[string]map[string]repository.BigramPosting, len(bigrams))
	for _, b := range bigrams {
		postings, err := e.repo.BigramPostings(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("bigram postings for %q: %w", b, err)
		}
		bigramPostings[b] = postings
	}

	ranked := make([]rankedDoc, 0, len(candidates))
	for _, c := range candidates {
		var s float64
		if qNorm > 0 {
			for term, tfidf := range termTFIDF {
				posting, hit := termPostings[term][c.PathID]
				if !hit {
					continue
				}
				cosQ := tfidf / qNorm
				var docWeight float64
				if c.Len > 0 {
					docWeight = posting.TFIDF / c.Len
				}
				s += cosQ * docWeight
			}
		}
		for _, b := range bigrams {
			posting, hit := bigramPostings[b][c.PathID]
			if !hit {
				continue
			}
			s = s*(1-BigramMultiplier) + posting.TFIDF*BigramMultiplier
		}

		score := s + e.docs[c.PathID].Authority*PageRankMultiplier
		ranked = append(ranked, rankedDoc{PathID: c.PathID, Score: score})
	}

	// candidates arrives sorted by (doc_count desc, sum_tfidf desc); a
	// stable sort on score desc keeps that as the tie-break, matching the
	// composite ordering key spec.md defines.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

// queryTF computes the query term-frequency weight: 1 + log10(freq) when
// freq > 0, else 0.
func queryTF(freq int) float64 {
	if freq <= 0 {
		return 0
	}
	return 1 + math.Log10(float64(freq))
}
