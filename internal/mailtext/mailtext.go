// Package mailtext extracts readable text from email bodies.
package mailtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPreviewLength is the preview size shown on review cards
const DefaultPreviewLength = 200

// HTMLToText returns the visible text of an HTML document with whitespace collapsed
func HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CollapseWhitespace(html)
	}

	doc.Find("script, style, head, noscript").Remove()
	return CollapseWhitespace(doc.Text())
}

// CollapseWhitespace replaces runs of whitespace with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preview returns at most max runes of text, preferring the plain body
func Preview(plain, html string, max int) string {
	if max <= 0 {
		max = DefaultPreviewLength
	}

	text := CollapseWhitespace(plain)
	if text == "" {
		text = HTMLToText(html)
	}

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
