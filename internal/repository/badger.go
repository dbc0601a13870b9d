package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for the BadgerDB-backed repository. Postings are stored as
// flat (term, path_id) records under a shared prefix rather than nested
// inside a term record, following the flat-table shape SPEC_FULL calls out
// as the cleaner alternative to embedded posting arrays; a term's postings
// are a prefix range scan.
const (
	keyDoc        = "doc:"
	keyDocByURL   = "docurl:"
	keyUniTerm    = "uniterm:"
	keyUniPosting = "unipost:"
	keyBigTerm    = "bigterm:"
	keyBigPosting = "bigpost:"

	keySep = "\x00"
)

// Badger is a Repository backed by an embedded BadgerDB instance, for
// persistent on-disk corpora. Modeled on the transactional
// marshal-then-db.Update/db.View pattern used by the reference trace
// snapshot store, generalized from a single gzip-compressed blob per
// snapshot to one small JSON value per document/posting/term record.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) a BadgerDB database at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db at %q: %w", dir, err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close badger db: %w", err)
	}
	return nil
}

func uniPostingKey(term, pathID string) string {
	return keyUniPosting + term + keySep + pathID
}

func bigPostingKey(bigram, pathID string) string {
	return keyBigPosting + bigram + keySep + pathID
}

func putJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, v any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	if err != nil {
		return false, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (b *Badger) PutDocument(_ context.Context, pathID, url string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var doc Document
		if _, err := getJSON(txn, keyDoc+pathID, &doc); err != nil {
			return err
		}
		doc.PathID = pathID
		doc.URL = url
		if err := putJSON(txn, keyDoc+pathID, doc); err != nil {
			return err
		}
		return txn.Set([]byte(keyDocByURL+url), []byte(pathID))
	})
}

func (b *Badger) SetTitleSnippet(_ context.Context, pathID, title, snippet string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var doc Document
		ok, err := getJSON(txn, keyDoc+pathID, &doc)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set title/snippet: unknown path_id %q", pathID)
		}
		doc.Title, doc.Snippet = title, snippet
		return putJSON(txn, keyDoc+pathID, doc)
	})
}

func (b *Badger) SetAuthority(_ context.Context, url string, score float64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyDocByURL + url))
		if err != nil {
			return fmt.Errorf("set authority: unknown url %q: %w", url, err)
		}
		var pathID string
		if err := item.Value(func(val []byte) error {
			pathID = string(val)
			return nil
		}); err != nil {
			return err
		}
		var doc Document
		if _, err := getJSON(txn, keyDoc+pathID, &doc); err != nil {
			return err
		}
		doc.Authority = score
		return putJSON(txn, keyDoc+pathID, doc)
	})
}

func (b *Badger) UpsertUnigramPosting(_ context.Context, term, pathID string, naturalFreq int, positionalIdx []int, weightedFreq int) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var stats TermStats
		ok, err := getJSON(txn, keyUniTerm+term, &stats)
		if err != nil {
			return err
		}
		if !ok {
			stats = TermStats{Term: term}
			if err := putJSON(txn, keyUniTerm+term, stats); err != nil {
				return err
			}
		}
		p := UnigramPosting{
			Term:          term,
			PathID:        pathID,
			NaturalFreq:   naturalFreq,
			PositionalIdx: positionalIdx,
			WeightedFreq:  weightedFreq,
		}
		return putJSON(txn, uniPostingKey(term, pathID), p)
	})
}

func (b *Badger) UpsertBigramPosting(_ context.Context, bigram, pathID string, bigramWtFreq int) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var stats BigramStats
		ok, err := getJSON(txn, keyBigTerm+bigram, &stats)
		if err != nil {
			return err
		}
		if !ok {
			stats = BigramStats{Bigram: bigram}
			if err := putJSON(txn, keyBigTerm+bigram, stats); err != nil {
				return err
			}
		}
		p := BigramPosting{Bigram: bigram, PathID: pathID, BigramWtFreq: bigramWtFreq}
		return putJSON(txn, bigPostingKey(bigram, pathID), p)
	})
}

func (b *Badger) SetTermStats(_ context.Context, term string, idf float64, df int) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var stats TermStats
		ok, err := getJSON(txn, keyUniTerm+term, &stats)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set term stats: unknown term %q", term)
		}
		stats.IDF, stats.DF = idf, df
		return putJSON(txn, keyUniTerm+term, stats)
	})
}

func (b *Badger) SetPostingScores(_ context.Context, term, pathID string, tf, tfidf float64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var p UnigramPosting
		ok, err := getJSON(txn, uniPostingKey(term, pathID), &p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set posting scores: no posting for term %q doc %q", term, pathID)
		}
		p.TF, p.TFIDF = tf, tfidf
		return putJSON(txn, uniPostingKey(term, pathID), p)
	})
}

func (b *Badger) SetBigramStats(_ context.Context, bigram string, idf float64, df int) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var stats BigramStats
		ok, err := getJSON(txn, keyBigTerm+bigram, &stats)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set bigram stats: unknown bigram %q", bigram)
		}
		stats.IDF, stats.DF = idf, df
		return putJSON(txn, keyBigTerm+bigram, stats)
	})
}

func (b *Badger) SetBigramPostingScores(_ context.Context, bigram, pathID string, tf, tfidf float64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var p BigramPosting
		ok, err := getJSON(txn, bigPostingKey(bigram, pathID), &p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("set bigram posting scores: no posting for bigram %q doc %q", bigram, pathID)
		}
		p.TF, p.TFIDF = tf, tfidf
		return putJSON(txn, bigPostingKey(bigram, pathID), p)
	})
}

// iteratePrefix runs fn over every key/value pair whose key starts with
// prefix, within a read-only transaction.
func (b *Badger) iteratePrefix(prefix string, fn func(key string, val []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Badger) ListTermsAlpha(_ context.Context) ([]string, error) {
	var terms []string
	err := b.iteratePrefix(keyUniTerm, func(key string, _ []byte) error {
		terms = append(terms, strings.TrimPrefix(key, keyUniTerm))
		return nil
	})
	sort.Strings(terms)
	return terms, err
}

func (b *Badger) ListBigramsAlpha(_ context.Context) ([]string, error) {
	var bigrams []string
	err := b.iteratePrefix(keyBigTerm, func(key string, _ []byte) error {
		bigrams = append(bigrams, strings.TrimPrefix(key, keyBigTerm))
		return nil
	})
	sort.Strings(bigrams)
	return bigrams, err
}

func (b *Badger) DistinctDocCount(_ context.Context) (int, error) {
	seen := make(map[string]struct{})
	err := b.iteratePrefix(keyUniPosting, func(key string, _ []byte) error {
		_, pathID := splitPostingKey(key, keyUniPosting)
		seen[pathID] = struct{}{}
		return nil
	})
	return len(seen), err
}

func (b *Badger) DistinctBigramDocCount(_ context.Context) (int, error) {
	seen := make(map[string]struct{})
	err := b.iteratePrefix(keyBigPosting, func(key string, _ []byte) error {
		_, pathID := splitPostingKey(key, keyBigPosting)
		seen[pathID] = struct{}{}
		return nil
	})
	return len(seen), err
}

func splitPostingKey(key, prefix string) (term, pathID string) {
	rest := strings.TrimPrefix(key, prefix)
	parts := strings.SplitN(rest, keySep, 2)
	if len(parts) != 2 {
		return rest, ""
	}
	return parts[0], parts[1]
}

func (b *Badger) PostingCounts(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := b.iteratePrefix(keyUniPosting, func(key string, _ []byte) error {
		term, _ := splitPostingKey(key, keyUniPosting)
		counts[term]++
		return nil
	})
	return counts, err
}

func (b *Badger) BigramPostingCounts(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := b.iteratePrefix(keyBigPosting, func(key string, _ []byte) error {
		bigram, _ := splitPostingKey(key, keyBigPosting)
		counts[bigram]++
		return nil
	})
	return counts, err
}

func (b *Badger) WeightedFreqs(_ context.Context, term string) (map[string]int, error) {
	out := make(map[string]int)
	err := b.iteratePrefix(keyUniPosting+term+keySep, func(_ string, val []byte) error {
		var p UnigramPosting
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out[p.PathID] = p.WeightedFreq
		return nil
	})
	return out, err
}

func (b *Badger) BigramFreqs(_ context.Context, bigram string) (map[string]int, error) {
	out := make(map[string]int)
	err := b.iteratePrefix(keyBigPosting+bigram+keySep, func(_ string, val []byte) error {
		var p BigramPosting
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out[p.PathID] = p.BigramWtFreq
		return nil
	})
	return out, err
}

func (b *Badger) TermPostings(_ context.Context, term string) (map[string]UnigramPosting, error) {
	out := make(map[string]UnigramPosting)
	err := b.iteratePrefix(keyUniPosting+term+keySep, func(_ string, val []byte) error {
		var p UnigramPosting
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out[p.PathID] = p
		return nil
	})
	return out, err
}

func (b *Badger) BigramPostings(_ context.Context, bigram string) (map[string]BigramPosting, error) {
	out := make(map[string]BigramPosting)
	err := b.iteratePrefix(keyBigPosting+bigram+keySep, func(_ string, val []byte) error {
		var p BigramPosting
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out[p.PathID] = p
		return nil
	})
	return out, err
}

func (b *Badger) DocumentsWithAny(_ context.Context, terms []string) ([]DocCandidate, error) {
	agg := make(map[string]*DocCandidate)
	for _, term := range terms {
		err := b.iteratePrefix(keyUniPosting+term+keySep, func(_ string, val []byte) error {
			var p UnigramPosting
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			c, ok := agg[p.PathID]
			if !ok {
				c = &DocCandidate{PathID: p.PathID}
				agg[p.PathID] = c
			}
			c.DocCount++
			c.SumTFIDF += p.TFIDF
			c.Len += p.TFIDF * p.TFIDF
			return nil
		})
		if err != nil {
			return nil, err
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

func (b *Badger) AllDocuments(_ context.Context) ([]Document, error) {
	var docs []Document
	err := b.iteratePrefix(keyDoc, func(_ string, val []byte) error {
		var d Document
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func (b *Badger) GetDocument(_ context.Context, pathID string) (Document, bool, error) {
	var doc Document
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		ok, err := getJSON(txn, keyDoc+pathID, &doc)
		found = ok
		return err
	})
	return doc, found, err
}

func (b *Badger) GetDocumentByURL(_ context.Context, url string) (Document, bool, error) {
	var pathID string
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyDocByURL + url))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			pathID = string(val)
			return nil
		})
	})
	if err != nil || !found {
		return Document{}, false, err
	}
	return b.GetDocument(context.Background(), pathID)
}
