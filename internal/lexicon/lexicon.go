// Package lexicon provides stopword filtering, lemmatization, and token
// acceptance rules shared by the analyzer, index builder, and query engine.
//
// The lemmatizer is preloaded once at process start (by reducing a single
// throwaway word) so the first real query doesn't pay initialization cost.
package lexicon

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/kljensen/snowball"
)

const (
	// MinTokenLen and MaxTokenLen bound accepted token length, inclusive.
	MinTokenLen = 4
	MaxTokenLen = 69
)

// tokenPattern matches runs of ASCII letters/digits; everything else
// (punctuation, whitespace, non-ASCII) acts as a separator.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// Lexicon holds the immutable stopword set and exposes the lemmatizer and
// token acceptance rule used across the pipeline.
type Lexicon struct {
	stopwords map[string]struct{}
}

// New loads a stopword list from path, one word per line, trimmed.
func New(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stopwords file %q: %w", path, err)
	}
	defer f.Close()

	stopwords := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		stopwords[strings.ToLower(word)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stopwords file %q: %w", path, err)
	}

	return &Lexicon{stopwords: stopwords}, nil
}

// NewFromWords builds a Lexicon directly from a stopword slice, useful for
// tests and for embedding a default list without touching the filesystem.
func NewFromWords(words []string) *Lexicon {
	stopwords := make(map[string]struct{}, len(words))
	for _, w := range words {
		stopwords[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Lexicon{stopwords: stopwords}
}

// IsStopword reports whether w (already lowercase) is in the stopword set.
func (l *Lexicon) IsStopword(w string) bool {
	_, ok := l.stopwords[w]
	return ok
}

// AcceptToken reports whether w passes the acceptance rule: ASCII
// alphanumeric, 4 to 69 characters, and not a stopword. Callers pass
// already-lowercased tokens produced by Tokenize/TokenizeSpan.
func (l *Lexicon) AcceptToken(w string) bool {
	if len(w) < MinTokenLen || len(w) > MaxTokenLen {
		return false
	}
	if l.IsStopword(w) {
		return false
	}
	for _, r := range w {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// preloadOnce ensures the snowball stemmer pays its one-time initialization
// cost exactly once per process, regardless of how many Lexicon values
// exist.
var preloadOnce sync.Once

// Preload forces the lemmatizer's first-use initialization to happen now,
// rather than on the first real query. Call this once at startup.
func Preload() {
	preloadOnce.Do(func() {
		_, _ = snowball.Stem("preloading", "english", true)
	})
}

// Lemmatize reduces w to its dictionary-equivalent base form using the
// English Snowball (Porter2) stemmer. On stemming failure it falls back to
// returning w unchanged, matching the analyzer's degrade-to-partial policy.
func (l *Lexicon) Lemmatize(w string) string {
	stemmed, err := snowball.Stem(w, "english", true)
	if err != nil {
		return w
	}
	return stemmed
}

// Token pairs a surviving token with its byte offset in the original text.
type Token struct {
	Text   string
	Offset int
}

// Tokenize lowercases text and splits it into tokens that pass AcceptToken.
func (l *Lexicon) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	matches := tokenPattern.FindAllString(lower, -1)

	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if l.AcceptToken(m) {
			tokens = append(tokens, m)
		}
	}
	return tokens
}

// TokenizeSpan behaves like Tokenize but also records each surviving
// token's starting byte offset in the original (lowercased) text.
func (l *Lexicon) TokenizeSpan(text string) []Token {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	idx := tokenPattern.FindAllStringIndex(lower, -1)

	tokens := make([]Token, 0, len(idx))
	for _, span := range idx {
		word := lower[span[0]:span[1]]
		if l.AcceptToken(word) {
			tokens = append(tokens, Token{Text: word, Offset: span[0]})
		}
	}
	return tokens
}

// FreqEntry is the lemma's occurrence count plus the ordered offsets of
// each occurrence, used to build a posting's positional index.
type FreqEntry struct {
	Count   int
	Offsets []int
}

// WordFrequencySpans lemmatizes each token and accumulates per-lemma counts
// and offsets, preserving encounter order within each lemma's offset list.
func (l *Lexicon) WordFrequencySpans(tokens []Token) map[string]*FreqEntry {
	freq := make(map[string]*FreqEntry)
	for _, t := range tokens {
		lemma := l.Lemmatize(t.Text)
		entry, ok := freq[lemma]
		if !ok {
			entry = &FreqEntry{}
			freq[lemma] = entry
		}
		entry.Count++
		entry.Offsets = append(entry.Offsets, t.Offset)
	}
	return freq
}

// WordFrequency lemmatizes each token and returns per-lemma counts only.
func (l *Lexicon) WordFrequency(tokens []string) map[string]int {
	freq := make(map[string]int)
	for _, t := range tokens {
		freq[l.Lemmatize(t)]++
	}
	return freq
}

// BigramFreq tokenizes, lemmatizes, and counts consecutive-token pairs
// whose lemmas are concatenated without a separator (e.g. "machine
// learning" -> "machin"+"learn" -> "machinlearn").
func (l *Lexicon) BigramFreq(text string) map[string]int {
	tokens := l.Tokenize(text)
	if len(tokens) < 2 {
		return map[string]int{}
	}

	lemmas := make([]string, len(tokens))
	for i, t := range tokens {
		lemmas[i] = l.Lemmatize(t)
	}

	freq := make(map[string]int)
	for i := 0; i+1 < len(lemmas); i++ {
		freq[lemmas[i]+lemmas[i+1]]++
	}
	return freq
}
