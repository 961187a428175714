package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	leadingNumRe = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)`)
	countRe      = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKmM])?`)
	priceNumRe   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// stripHTML returns the text content of s with whitespace collapsed.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseWhitespace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(html.UnescapeString(htmlTagRe.ReplaceAllString(s, " ")))
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
				b.WriteByte(' ')
			}
		}
	}
	walk(doc)

	return collapseWhitespace(b.String())
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// parseLeadingNumber reads the number a string starts with: "4.5 out of 5 stars" -> 4.5.
func parseLeadingNumber(s string) (float64, bool) {
	m := leadingNumRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCount reads review-count style strings: "(2,000)", "1.2K ratings", "35".
func parseCount(s string) (int, bool) {
	m := countRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return int(v + 0.5), true
}

// parsePriceAmount extracts the numeric amount from a display price like "$1,299.99".
func parsePriceAmount(s string) (float64, bool) {
	m := priceNumRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// firstSentences splits text into at most n trimmed sentences.
func firstSentences(text string, n int) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
