// Package extract turns acceptance-criteria bullets into semantic
// components. Three strategies share one interface: ordered regex rules,
// a dependency-tree walk and embedding similarity against canonical
// patterns.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	markerRe     = regexp.MustCompile(`^(?:\d+[.)]\s*|[-*•]\s+)`)
	headerRe     = regexp.MustCompile(`(?i)^acceptance criteria:?\s*`)
)

// Normalize reduces a bullet to plain single-spaced text: HTML markup is
// dropped, a leading numbering or bullet marker and an "Acceptance
// Criteria" header are stripped
func Normalize(text string) string {
	if htmlTagRe.MatchString(text) {
		text = visibleText(text)
	}
	return cleanLine(text)
}

// SplitBullets splits a block of criteria into normalized bullets, one
// per line or list item. Empty and repeated bullets are dropped.
func SplitBullets(text string) []string {
	if htmlTagRe.MatchString(text) {
		text = visibleText(text)
	}

	seen := make(map[string]bool)
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		b := cleanLine(line)
		if b == "" {
			continue
		}
		key := strings.ToLower(b)
		if !seen[key] {
			seen[key] = true
			bullets = append(bullets, b)
		}
	}
	return bullets
}

func cleanLine(text string) string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	text = markerRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// visibleText extracts text nodes, skipping scripts and styles. Block
// elements end a line.
func visibleText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) {
			buf.WriteString("\n")
		}
	}

	walk(doc)
	return buf.String()
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "br", "ul", "ol", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}
