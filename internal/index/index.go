// Package index turns one document's analyzed HTML fields into the
// weighted and natural frequency data the repository stores: the
// title/snippet pair, per-term unigram postings with positional offsets,
// and per-bigram postings. It is the per-document half of the build
// pipeline; internal/ingest drives it across the whole corpus and merges
// the results into the repository.
package index

import (
	"strings"

	"github.com/adrianmoreno/corpussearch/internal/htmlfield"
	"github.com/adrianmoreno/corpussearch/internal/lexicon"
)

// Field weights, named as in the source's tuning constants.
const (
	WeightTitle  = 6
	WeightH1H2   = 3
	WeightH3H6   = 2
	WeightStrong = 1
	WeightAnchor = 1

	TitleMax   = 60
	SnippetMax = 350
)

// UnigramTerm is one term's frequency data for a single document, ready to
// be upserted into the repository as a posting.
type UnigramTerm struct {
	Term          string
	NaturalFreq   int
	WeightedFreq  int
	PositionalIdx []int
}

// Document is the complete per-document output of Build.
type Document struct {
	Title    string
	Snippet  string
	Unigrams []UnigramTerm
	Bigrams  map[string]int // bigram -> bigram_wt_freq
}

// Build merges a document's analyzed fields into weighted/natural
// frequencies, positional offsets, and bigram counts, following the
// field-weighting rules of the index builder: title contributes
// count*WeightTitle unconditionally (the consistent, fixed form; see
// DESIGN.md), body contributes count*1, and the remaining optional fields
// contribute count*their own weight.
func Build(lex *lexicon.Lexicon, fields *htmlfield.Fields) Document {
	titleText := derefOr(fields.Title, "")
	titleTokens := lex.TokenizeSpan(titleText)
	titleFreq := lex.WordFrequencySpans(titleTokens)

	titleOffset := 0
	if len(titleTokens) > 0 {
		last := titleTokens[len(titleTokens)-1]
		titleOffset = len(last.Text) + last.Offset
	}

	bodyTokens := lex.TokenizeSpan(fields.Body)
	for i := range bodyTokens {
		bodyTokens[i].Offset += titleOffset
	}
	bodyFreq := lex.WordFrequencySpans(bodyTokens)

	h1h2Freq := lex.WordFrequency(lex.Tokenize(derefOr(fields.H1H2, "")))
	h3h6Freq := lex.WordFrequency(lex.Tokenize(derefOr(fields.H3H6, "")))
	strongFreq := lex.WordFrequency(lex.Tokenize(derefOr(fields.Strong, "")))
	anchorFreq := lex.WordFrequency(lex.Tokenize(derefOr(fields.Anchor, "")))

	weighted := make(map[string]int)
	addSpanCounts(weighted, titleFreq, WeightTitle)
	addSpanCounts(weighted, bodyFreq, 1)
	addCounts(weighted, h1h2Freq, WeightH1H2)
	addCounts(weighted, h3h6Freq, WeightH3H6)
	addCounts(weighted, strongFreq, WeightStrong)
	addCounts(weighted, anchorFreq, WeightAnchor)

	natural := make(map[string]int)
	for term, e := range titleFreq {
		natural[term] += e.Count
	}
	for term, e := range bodyFreq {
		natural[term] += e.Count
	}

	positions := make(map[string][]int)
	for term, e := range titleFreq {
		positions[term] = append(positions[term], e.Offsets...)
	}
	for term, e := range bodyFreq {
		positions[term] = append(positions[term], e.Offsets...)
	}

	var unigrams []UnigramTerm
	for term, nat := range natural {
		w := weighted[term]
		if nat == 0 && w == 0 {
			continue
		}
		unigrams = append(unigrams, UnigramTerm{
			Term:          term,
			NaturalFreq:   nat,
			WeightedFreq:  w,
			PositionalIdx: positions[term],
		})
	}

	bodyBigram := lex.BigramFreq(fields.Body)
	titleBigram := lex.BigramFreq(titleText)
	bigrams := make(map[string]int, len(bodyBigram))
	for b, c := range bodyBigram {
		bigrams[b] = c
	}
	for b := range titleBigram {
		bigrams[b] += WeightTitle
	}

	title, snippet := titleSnippet(fields)

	return Document{
		Title:    title,
		Snippet:  snippet,
		Unigrams: unigrams,
		Bigrams:  bigrams,
	}
}

// addSpanCounts adds count*weight for every lemma in freq, the fixed
// (non-quirky) form applied unconditionally regardless of whether the term
// has been seen in an earlier field.
func addSpanCounts(dst map[string]int, freq map[string]*lexicon.FreqEntry, weight int) {
	for term, e := range freq {
		dst[term] += e.Count * weight
	}
}

func addCounts(dst map[string]int, freq map[string]int, weight int) {
	for term, count := range freq {
		dst[term] += count * weight
	}
}

// titleSnippet applies the source's title/snippet priority rules: prefer
// (title, paragraph); fall back to (body, paragraph) when title is
// missing; fall back to (title, body) when paragraph is missing; fall back
// to (title, "") when both are missing. Strings are ASCII-normalized,
// whitespace-collapsed, and truncated.
func titleSnippet(fields *htmlfield.Fields) (title, snippet string) {
	bodyPresent := fields.Body != ""

	switch {
	case fields.Title == nil && bodyPresent && fields.Paragraph != nil:
		return normalize(fields.Body, TitleMax), normalize(*fields.Paragraph, SnippetMax)
	case fields.Title != nil && fields.Paragraph != nil:
		return normalize(*fields.Title, TitleMax), normalize(*fields.Paragraph, SnippetMax)
	case fields.Title != nil && fields.Paragraph == nil && bodyPresent:
		return normalize(*fields.Title, TitleMax), normalize(fields.Body, SnippetMax)
	case fields.Title != nil:
		return normalize(*fields.Title, TitleMax), ""
	case bodyPresent:
		return normalize(fields.Body, TitleMax), ""
	default:
		return "", ""
	}
}

// normalize strips non-ASCII bytes, collapses whitespace, and truncates to
// max characters.
func normalize(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= 127 {
			b.WriteRune(r)
		}
	}
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if len(collapsed) > max {
		return collapsed[:max]
	}
	return collapsed
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
