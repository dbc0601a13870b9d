package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Repository backed by mutex-guarded maps. It is
// the default store for tests and for corpora small enough to fit in
// memory; its posting-map shape follows the sharded-lock pattern used by
// the reference inverted index (a sync.RWMutex guarding a single set of
// maps, rather than per-shard locks, since corpus-scale indexes here are
// small enough that contention is not a concern).
type Memory struct {
	mu sync.RWMutex

	documents   map[string]*Document // path_id -> document
	urlToPathID map[string]string

	unigramTerms    map[string]*TermStats               // term -> stats
	unigramPostings map[string]map[string]*UnigramPosting // term -> path_id -> posting

	bigramTerms    map[string]*BigramStats
	bigramPostings map[string]map[string]*BigramPosting
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		documents:       make(map[string]*Document),
		urlToPathID:     make(map[string]string),
		unigramTerms:    make(map[string]*TermStats),
		unigramPostings: make(map[string]map[string]*UnigramPosting),
		bigramTerms:     make(map[string]*BigramStats),
		bigramPostings:  make(map[string]map[string]*BigramPosting),
	}
}

func (m *Memory) PutDocument(_ context.Context, pathID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[pathID]
	if !ok {
		doc = &Document{PathID: pathID}
		m.documents[pathID] = doc
	}
	doc.URL = url
	m.urlToPathID[url] = pathID
	return nil
}

func (m *Memory) SetTitleSnippet(_ context.Context, pathID, title, snippet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[pathID]
	if !ok {
		return fmt.Errorf("set title/snippet: unknown path_id %q", pathID)
	}
	doc.Title = title
	doc.Snippet = snippet
	return nil
}

func (m *Memory) SetAuthority(_ context.Context, url string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pathID, ok := m.urlToPathID[url]
	if !ok {
		return fmt.Errorf("set authority: unknown url %q", url)
	}
	m.documents[pathID].Authority = score
	return nil
}

func (m *Memory) UpsertUnigramPosting(_ context.Context, term, pathID string, naturalFreq int, positionalIdx []int, weightedFreq int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	postings, ok := m.unigramPostings[term]
	if !ok {
		postings = make(map[string]*UnigramPosting)
		m.unigramPostings[term] = postings
		m.unigramTerms[term] = &TermStats{Term: term}
	}
	postings[pathID] = &UnigramPosting{
		Term:          term,
		PathID:        pathID,
		NaturalFreq:   naturalFreq,
		PositionalIdx: positionalIdx,
		WeightedFreq:  weightedFreq,
	}
	return nil
}

func (m *Memory) UpsertBigramPosting(_ context.Context, bigram, pathID string, bigramWtFreq int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	postings, ok := m.bigramPostings[bigram]
	if !ok {
		postings = make(map[string]*BigramPosting)
		m.bigramPostings[bigram] = postings
		m.bigramTerms[bigram] = &BigramStats{Bigram: bigram}
	}
	postings[pathID] = &BigramPosting{
		Bigram:       bigram,
		PathID:       pathID,
		BigramWtFreq: bigramWtFreq,
	}
	return nil
}

func (m *Memory) SetTermStats(_ context.Context, term string, idf float64, df int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.unigramTerms[term]
	if !ok {
		return fmt.Errorf("set term stats: unknown term %q", term)
	}
	stats.IDF, stats.DF = idf, df
	return nil
}

func (m *Memory) SetPostingScores(_ context.Context, term, pathID string, tf, tfidf float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	postings, ok := m.unigramPostings[term]
	if !ok {
		return fmt.Errorf("set posting scores: unknown term %q", term)
	}
	posting, ok := postings[pathID]
	if !ok {
		return fmt.Errorf("set posting scores: no posting for term %q doc %q", term, pathID)
	}
	posting.TF, posting.TFIDF = tf, tfidf
	return nil
}

func (m *Memory) SetBigramStats(_ context.Context, bigram string, idf float64, df int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.bigramTerms[bigram]
	if !ok {
		return fmt.Errorf("set bigram stats: unknown bigram %q", bigram)
	}
	stats.IDF, stats.DF = idf, df
	return nil
}

func (m *Memory) SetBigramPostingScores(_ context.Context, bigram, pathID string, tf, tfidf float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	postings, ok := m.bigramPostings[bigram]
	if !ok {
		return fmt.Errorf("set bigram posting scores: unknown bigram %q", bigram)
	}
	posting, ok := postings[pathID]
	if !ok {
		return fmt.Errorf("set bigram posting scores: no posting for bigram %q doc %q", bigram, pathID)
	}
	posting.TF, posting.TFIDF = tf, tfidf
	return nil
}

func (m *Memory) ListTermsAlpha(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.unigramTerms))
	for t := range m.unigramTerms {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms, nil
}

func (m *Memory) ListBigramsAlpha(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bigrams := make([]string, 0, len(m.bigramTerms))
	for b := range m.bigramTerms {
		bigrams = append(bigrams, b)
	}
	sort.Strings(bigrams)
	return bigrams, nil
}

func (m *Memory) DistinctDocCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, postings := range m.unigramPostings {
		for pathID := range postings {
			seen[pathID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (m *Memory) DistinctBigramDocCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, postings := range m.bigramPostings {
		for pathID := range postings {
			seen[pathID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (m *Memory) PostingCounts(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int, len(m.unigramPostings))
	for term, postings := range m.unigramPostings {
		counts[term] = len(postings)
	}
	return counts, nil
}

func (m *Memory) BigramPostingCounts(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int, len(m.bigramPostings))
	for bigram, postings := range m.bigramPostings {
		counts[bigram] = len(postings)
	}
	return counts, nil
}

func (m *Memory) WeightedFreqs(_ context.Context, term string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for pathID, p := range m.unigramPostings[term] {
		out[pathID] = p.WeightedFreq
	}
	return out, nil
}

func (m *Memory) BigramFreqs(_ context.Context, bigram string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for pathID, p := range m.bigramPostings[bigram] {
		out[pathID] = p.BigramWtFreq
	}
	return out, nil
}

func (m *Memory) TermPostings(_ context.Context, term string) (map[string]UnigramPosting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]UnigramPosting, len(m.unigramPostings[term]))
	for pathID, p := range m.unigramPostings[term] {
		out[pathID] = *p
	}
	return out, nil
}

func (m *Memory) BigramPostings(_ context.Context, bigram string) (map[string]BigramPosting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]BigramPosting, len(m.bigramPostings[bigram]))
	for pathID, p := range m.bigramPostings[bigram] {
		out[pathID] = *p
	}
	return out, nil
}

func (m *Memory) DocumentsWithAny(_ context.Context, terms []string) ([]DocCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg := make(map[string]*DocCandidate)
	for _, term := range terms {
		for pathID, p := range m.unigramPostings[term] {
			c, ok := agg[pathID]
			if !ok {
				c = &DocCandidate{PathID: pathID}
				agg[pathID] = c
			}
			c.DocCount++
			c.SumTFIDF += p.TFIDF
			c.Len += p.TFIDF * p.TFIDF
		}
	}

	rows := make([]DocCandidate, 0, len(agg))
	for _, c := range agg {
		c.Len = math.Sqrt(c.Len)
		rows = append(rows, *c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DocCount != rows[j].DocCount {
			return rows[i].DocCount > rows[j].DocCount
		}
		return rows[i].SumTFIDF > rows[j].SumTFIDF
	})
	return rows, nil
}

func (m *Memory) AllDocuments(_ context.Context) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.documents))
	for _, d := range m.documents {
		docs = append(docs, *d)
	}
	return docs, nil
}

func (m *Memory) GetDocument(_ context.Context, pathID string) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[pathID]
	if !ok {
		return Document{}, false, nil
	}
	return *d, true, nil
}

func (m *Memory) GetDocumentByURL(_ context.Context, url string) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pathID, ok := m.urlToPathID[url]
	if !ok {
		return Document{}, false, nil
	}
	return *m.documents[pathID], true, nil
}

func (m *Memory) Close() error { return nil }
