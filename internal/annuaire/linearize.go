package annuaire

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/sagakore/pharmagarde/internal/normalize"
)

// itemKind distinguishes the document-order stream the extractor walks:
// headings keep their level, everything else flattens to text lines.
type itemKind int

const (
	itemText itemKind = iota
	itemH2
	itemH3
	itemH4
)

type item struct {
	kind itemKind
	text string
}

// blockTags force a line break in the flattened text, which is how
// address and phone lines inside one pharmacy block stay separate.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "ul": {}, "ol": {}, "address": {},
	"br": {}, "tr": {}, "table": {}, "section": {}, "article": {},
}

var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "nav": {}, "footer": {},
	"aside": {}, "iframe": {}, "head": {},
}

// linearize walks the DOM in document order and produces a flat stream of
// heading and text-line items. Heading subtrees are captured whole; text
// between headings is split on block boundaries into individual lines.
func linearize(page []byte) ([]item, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var items []item
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		for _, line := range strings.Split(buf.String(), "\n") {
			if line = normalize.Clean(line); line != "" {
				items = append(items, item{kind: itemText, text: line})
			}
		}
		buf.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			name := strings.ToLower(n.Data)
			if _, skip := skipTags[name]; skip {
				return
			}
			switch name {
			case "h2", "h3", "h4":
				flush()
				kind := itemH2
				if name == "h3" {
					kind = itemH3
				} else if name == "h4" {
					kind = itemH4
				}
				if text := normalize.Clean(textContent(n)); text != "" {
					items = append(items, item{kind: kind, text: text})
				}
				return
			}
			if _, block := blockTags[name]; block {
				buf.WriteString("\n")
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if _, block := blockTags[name]; block {
				buf.WriteString("\n")
			}
		case html.TextNode:
			buf.WriteString(n.Data)
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
	}
	walk(root)
	flush()
	return items, nil
}

// textContent returns the concatenated text of a subtree with single
// spaces between inline fragments.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
			b.WriteString(" ")
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func mustCI(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + pattern)
}
