// Package linkgraph builds the corpus-internal directed link graph from
// anchor elements and computes a damped, PageRank-style authority score
// for every document.
package linkgraph

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// DampingFactor and ConvergenceTolerance match the design-level spec for
// the authority computation.
const (
	DampingFactor        = 0.9
	ConvergenceTolerance = 1e-8
)

var protocolPattern = regexp.MustCompile(`^https?://`)

// Document is one corpus page's identity and raw HTML, the minimum
// linkgraph needs to discover its outgoing edges.
type Document struct {
	URL     string
	RawHTML string
}

// ExtractOutgoingLinks parses raw HTML and returns every <a href> target,
// normalized per the source algorithm: scheme-prefixed targets have their
// protocol stripped; relative targets are resolved against base and then
// likewise stripped, so every normalized target is directly comparable
// against the corpus's own (scheme-less) URL values.
func ExtractOutgoingLinks(raw, base string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html for outgoing links: %w", err)
	}

	baseURL, baseErr := url.Parse(base)

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		if protocolPattern.MatchString(href) {
			links = append(links, protocolPattern.ReplaceAllString(href, ""))
			return
		}

		if baseErr != nil {
			links = append(links, href)
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			links = append(links, href)
			return
		}
		resolved := baseURL.ResolveReference(ref).String()
		links = append(links, protocolPattern.ReplaceAllString(resolved, ""))
	})
	return links, nil
}

// BuildAuthority builds the corpus-internal directed graph from docs'
// anchor tags (retaining only edges to other in-corpus URLs, never an
// edge to the source's own URL) and returns a damped authority score per
// URL, normalized so scores across the corpus sum to approximately 1.
func BuildAuthority(docs []Document) (map[string]float64, error) {
	corpusURLs := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		corpusURLs[d.URL] = struct{}{}
	}

	g := simple.NewDirectedGraph()
	nodeID := make(map[string]int64, len(docs))
	nextID := int64(0)
	idFor := func(u string) int64 {
		id, ok := nodeID[u]
		if !ok {
			id = nextID
			nextID++
			nodeID[u] = id
			g.AddNode(simple.Node(id))
		}
		return id
	}

	for _, d := range docs {
		idFor(d.URL)
	}

	for _, d := range docs {
		targets, err := ExtractOutgoingLinks(d.RawHTML, d.URL)
		if err != nil {
			continue // malformed HTML never aborts authority computation
		}
		srcID := idFor(d.URL)
		for _, t := range targets {
			if t == d.URL {
				continue
			}
			if _, inCorpus := corpusURLs[t]; !inCorpus {
				continue
			}
			dstID := idFor(t)
			if srcID == dstID {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(srcID), T: simple.Node(dstID)})
		}
	}

	ranks := network.PageRank(g, DampingFactor, ConvergenceTolerance)

	scores := make(map[string]float64, len(nodeID))
	for u, id := range nodeID {
		scores[u] = ranks[id]
	}
	return scores, nil
}
