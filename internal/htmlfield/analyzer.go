package htmlfield

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FileSizeCap is the byte threshold past which a broken-body document is
// truncated before further processing.
const FileSizeCap = 500000

// TruncatedLines is how many lines survive truncation.
const TruncatedLines = 500

// NumberAlphaThreshold is the digit/(digit+letter) ratio above which a
// document is treated as numeric-heavy and has its numeric tokens blanked.
const NumberAlphaThreshold = 0.20

// Fields is the analyzer's output record for one document. Optional fields
// are nil when the corresponding tag group was absent from the document.
type Fields struct {
	BrokenBody       bool
	NumberAlphaRatio float64
	RemovedNumbers   bool

	Title     *string
	Body      string
	Paragraph *string
	H1H2      *string
	H3H6      *string
	Strong    *string
	Anchor    *string
}

// Analyze reads path and runs the full repair-then-extract pipeline. A
// missing file or an unparsable document yields an empty Fields record with
// a non-nil error so the caller can log and continue (the document still
// gets recorded in the documents store with no textual contribution).
func Analyze(path string) (*Fields, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &Fields{}, fmt.Errorf("read %q: %w", path, err)
	}
	return AnalyzeBytes(string(raw))
}

// AnalyzeBytes runs the analyzer pipeline over raw HTML text directly,
// independent of any filesystem access; exported for tests and for callers
// that already have the bytes in hand.
func AnalyzeBytes(raw string) (*Fields, error) {
	repaired := validateAndRepair(raw)

	broken := !hasBodyTag(repaired)
	if broken {
		if len(repaired) > FileSizeCap {
			repaired = truncateToLines(repaired, TruncatedLines)
		}
		repaired = blankMatches(regexLinks, repaired)
	}

	ratio := formatRatio(numberAlphaRatio(repaired))
	removedNumbers := false
	if ratio > NumberAlphaThreshold {
		repaired = blankMatches(regexNumbers, repaired)
		removedNumbers = true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(repaired))
	if err != nil {
		return &Fields{
			BrokenBody:       broken,
			NumberAlphaRatio: ratio,
			RemovedNumbers:   removedNumbers,
		}, fmt.Errorf("parse document: %w", err)
	}
	doc.Find("script, style").Remove()

	fields := &Fields{
		BrokenBody:       broken,
		NumberAlphaRatio: ratio,
		RemovedNumbers:   removedNumbers,
	}

	if title, ok := collectText(doc.Find("title").First()); ok {
		fields.Title = &title
	}

	if broken {
		fields.Body = collapseWhitespace(doc.Text())
	} else if body, ok := collectText(doc.Find("body").First()); ok {
		fields.Body = body
	}

	if p, ok := collectText(doc.Find("p")); ok {
		fields.Paragraph = &p
	}
	if h, ok := collectText(doc.Find("h1, h2")); ok {
		fields.H1H2 = &h
	}
	if h, ok := collectText(doc.Find("h3, h4, h5, h6")); ok {
		fields.H3H6 = &h
	}
	if s, ok := collectText(doc.Find("strong, b, em, i, u, dl, ol, ul")); ok {
		fields.Strong = &s
	}
	if a, ok := collectText(doc.Find("a")); ok {
		fields.Anchor = &a
	}

	return fields, nil
}

// collectText joins the trimmed text of every node in sel with single
// spaces, reporting false when sel matched nothing.
func collectText(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return "", false
	}
	return collapseWhitespace(strings.Join(parts, " ")), true
}

// collapseWhitespace reduces any run of whitespace to a single space and
// trims the ends.
func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
