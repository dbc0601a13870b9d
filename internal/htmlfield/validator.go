// Package htmlfield repairs malformed HTML and extracts the weighted
// textual fields the index builder scores against: title, body, h1/h2,
// h3-h6, strong-ish emphasis, anchor text, and paragraph text.
//
// No tidy-equivalent, line-numbered HTML linter exists anywhere in the
// reference corpus (goquery and golang.org/x/net/html are parsers, not
// diagnostic validators), so the tag-balance scanner below is a small
// stdlib pass grounded directly on the source algorithm it replaces.
package htmlfield

import (
	"regexp"
	"strconv"
	"strings"
)

// tagPattern matches opening and closing HTML tags, capturing the slash
// (if any) and the tag name.
var tagPattern = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9]*)[^>]*>`)

// voidTags never require a closing tag and are ignored by the balance
// scanner.
var voidTags = map[string]struct{}{
	"br": {}, "img": {}, "meta": {}, "link": {}, "hr": {},
	"input": {}, "area": {}, "base": {}, "col": {}, "embed": {},
	"source": {}, "track": {}, "wbr": {},
}

type openTag struct {
	name string
	line int
}

// validateAndRepair scans raw HTML for unclosed and stray-closing tags and
// patches the source text directly, mirroring the tolerant-validator
// described in the analyzer algorithm:
//   - a tag left open at end of scan gets its closing tag appended to the
//     line where it was opened ("missing </tag>")
//   - a closing tag with no matching open tag gets a synthetic opening tag
//     prepended to its own line ("discarding unexpected </tag>")
func validateAndRepair(raw string) string {
	lines := strings.Split(raw, "\n")

	// lineAppend/linePrepend collect fixups keyed by zero-based line index;
	// applied once at the end so earlier fixups don't shift later matches.
	lineAppend := make(map[int][]string)
	linePrepend := make(map[int][]string)

	var stack []openTag
	lineOf := make([]int, 0) // cumulative byte offset at start of each line

	offset := 0
	for _, l := range lines {
		lineOf = append(lineOf, offset)
		offset += len(l) + 1 // account for the stripped newline
	}

	lineForOffset := func(pos int) int {
		// binary search would be overkill for corpus-scale documents
		line := 0
		for i, start := range lineOf {
			if start > pos {
				break
			}
			line = i
		}
		return line
	}

	for _, m := range tagPattern.FindAllStringSubmatchIndex(raw, -1) {
		closing := raw[m[2]:m[3]] == "/"
		name := strings.ToLower(raw[m[4]:m[5]])
		if _, void := voidTags[name]; void {
			continue
		}
		line := lineForOffset(m[0])

		if !closing {
			stack = append(stack, openTag{name: name, line: line})
			continue
		}

		// closing tag: look for the nearest matching open tag on the stack
		matchIdx := -1
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].name == name {
				matchIdx = i
				break
			}
		}
		if matchIdx == -1 {
			// discarding unexpected </tag>: synthesize the opener at this line
			linePrepend[line] = append(linePrepend[line], "<"+name+">")
			continue
		}
		// anything left above matchIdx never got closed; report each as
		// missing at the line where it was opened
		for i := len(stack) - 1; i > matchIdx; i-- {
			lineAppend[stack[i].line] = append(lineAppend[stack[i].line], "</"+stack[i].name+">")
		}
		stack = stack[:matchIdx]
	}

	// anything still open at EOF is missing its closing tag
	for _, open := range stack {
		lineAppend[open.line] = append(lineAppend[open.line], "</"+open.name+">")
	}

	if len(lineAppend) == 0 && len(linePrepend) == 0 {
		return raw
	}

	for i := range lines {
		if pre, ok := linePrepend[i]; ok {
			lines[i] = strings.Join(pre, "") + lines[i]
		}
		if post, ok := lineAppend[i]; ok {
			lines[i] = lines[i] + strings.Join(post, "")
		}
	}
	return strings.Join(lines, "\n")
}

// regexNumbers matches integer, decimal, and scientific-notation tokens.
var regexNumbers = regexp.MustCompile(`-?\b[0-9]*\.?[0-9]+([eE][+-]?[0-9]*)?\b`)

// regexLinks matches bare or scheme-prefixed hostnames with an optional
// path, used to strip hyperlink-looking substrings from broken-body pages.
var regexLinks = regexp.MustCompile(`(?:(?:http|https)://)?[-a-zA-Z0-9.]{2,256}\.[a-z]{2,4}\b(?:/[-a-zA-Z0-9@:%_+.~#?&/=]*)?`)

// blankMatches replaces every regex match in s with spaces of equal byte
// length, preserving all surrounding character offsets.
func blankMatches(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return strings.Repeat(" ", len(match))
	})
}

// numberAlphaRatio computes digits / (digits + letters) over s. A document
// with no letters or digits reports ratio 0.
func numberAlphaRatio(s string) float64 {
	var digits, letters int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letters++
		}
	}
	if digits+letters == 0 {
		return 0
	}
	return float64(digits) / float64(digits+letters)
}

// hasBodyTag reports whether raw contains a literal <body opening tag,
// mirroring a lenient parser that does not synthesize a missing body.
var bodyTagPattern = regexp.MustCompile(`(?i)<body[\s>]`)

func hasBodyTag(raw string) bool {
	return bodyTagPattern.MatchString(raw)
}

// truncateToLines keeps at most n lines of s.
func truncateToLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}

// formatRatio rounds r to two decimal places, matching the source's
// rounding for number_alpha_ratio.
func formatRatio(r float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(r, 'f', 2, 64), 64)
	if err != nil {
		return r
	}
	return rounded
}
