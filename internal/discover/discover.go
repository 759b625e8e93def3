// Package discover locates duty-roster documents on the bulletin
// publisher's site: article pages in the news listing, then the PDF
// links inside each article. All functions are pure HTML parsing; the
// caller does the fetching.
package discover

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/sagakore/pharmagarde/internal/normalize"
)

// Article is one news item found in the category listing.
type Article struct {
	ID    int
	URL   string
	Title string
	// IsGarde is true when the title mentions the duty roster.
	IsGarde bool
}

// PDFLink is one PDF reference found on an article page.
type PDFLink struct {
	URL          string
	Label        string
	ArticleID    int
	ArticleTitle string
	IsGarde      bool
}

var (
	articleIDRe = regexp.MustCompile(`[?&]id=(\d+)`)
	// gardeRe flags titles and labels that announce a duty roster.
	gardeRe  = regexp.MustCompile(`(?i)garde|tour\b|semaine|pharmacie.*mois|mois.*pharmacie`)
	uploadRe = regexp.MustCompile(`(?i)/uploads/.*\.pdf`)
	jsPDFRe  = regexp.MustCompile(`(?i)["']((?:https?://[^"']*|/uploads/)[^"']*\.pdf)["']`)
	// The site opens its download controller from onclick handlers, e.g.
	// onclick="window.open('controllers/downloads.php?id=972','ipost')".
	onclickRe = regexp.MustCompile(`(?i)window\.open\(\s*['"]([^'"]*controllers/downloads\.php\?id=\d+)['"]`)
)

// Listing is the parsed article listing page.
type Listing struct {
	Articles []Article
	// NextURL is the resolved pagination target, empty on the last page.
	NextURL string
}

// ParseListing extracts article links from a category page. Articles are
// returned newest first (descending ID). Duplicate IDs keep the first
// sighting.
func ParseListing(page []byte, pageURL string) (*Listing, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("listing url: %w", err)
	}

	byID := map[int]Article{}
	var next string
	walk(root, func(n *html.Node, _ bool) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" {
			return
		}
		title := normalize.Clean(textContent(n))

		if next == "" {
			lower := strings.ToLower(title)
			if strings.Contains(lower, "plus d") && strings.Contains(lower, "article") {
				next = resolve(base, href)
			}
		}

		m := articleIDRe.FindStringSubmatch(href)
		if m == nil || title == "" {
			return
		}
		id, _ := strconv.Atoi(m[1])
		if _, seen := byID[id]; seen {
			return
		}
		byID[id] = Article{
			ID:      id,
			URL:     resolve(base, href),
			Title:   title,
			IsGarde: gardeRe.MatchString(title),
		}
	})

	out := &Listing{NextURL: next}
	for _, a := range byID {
		out.Articles = append(out.Articles, a)
	}
	sort.Slice(out.Articles, func(i, j int) bool {
		return out.Articles[i].ID > out.Articles[j].ID
	})
	return out, nil
}

// GardeOnly filters a listing down to duty-roster articles.
func GardeOnly(articles []Article) []Article {
	var out []Article
	for _, a := range articles {
		if a.IsGarde {
			out = append(out, a)
		}
	}
	return out
}

// PDFLinks extracts PDF references from an article page. Four link forms
// appear in the wild, checked in priority order: onclick download
// handlers, direct /uploads/ hrefs, URLs inside script blocks, and PDF
// paths in data attributes. Links inside <marquee> banners are excluded
// because the banner repeats on every page regardless of article.
func PDFLinks(page []byte, pageURL string, article *Article) ([]PDFLink, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("article url: %w", err)
	}

	banner := map[string]bool{}
	walk(root, func(n *html.Node, inMarquee bool) {
		if !inMarquee || n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		if href := strings.TrimSpace(attr(n, "href")); uploadRe.MatchString(href) {
			banner[resolve(base, href)] = true
		}
	})

	var links []PDFLink
	seen := map[string]bool{}
	add := func(resolved, label string) {
		if resolved == "" || seen[resolved] || banner[resolved] {
			return
		}
		seen[resolved] = true
		l := PDFLink{URL: resolved, Label: label}
		if article != nil {
			l.ArticleID = article.ID
			l.ArticleTitle = article.Title
		}
		switch {
		case article != nil && article.IsGarde:
			l.IsGarde = true
		default:
			l.IsGarde = gardeRe.MatchString(label)
		}
		links = append(links, l)
	}

	walk(root, func(n *html.Node, inMarquee bool) {
		if inMarquee || n.Type != html.ElementNode {
			return
		}
		if n.Data == "a" {
			if m := onclickRe.FindStringSubmatch(attr(n, "onclick")); m != nil {
				label := normalize.Clean(textContent(n))
				if label == "" {
					label = "pdf (download)"
				}
				add(resolve(base, m[1]), label)
			}
			if href := strings.TrimSpace(attr(n, "href")); uploadRe.MatchString(href) {
				label := normalize.Clean(textContent(n))
				if label == "" {
					label = "pdf"
				}
				add(resolve(base, href), label)
			}
			return
		}
		if n.Data == "script" {
			for _, m := range jsPDFRe.FindAllStringSubmatch(scriptText(n), -1) {
				add(resolve(base, m[1]), "pdf (via JS)")
			}
			return
		}
		for _, a := range n.Attr {
			if a.Key == "href" || a.Key == "onclick" {
				continue
			}
			if uploadRe.MatchString(a.Val) {
				label := normalize.Clean(textContent(n))
				if label == "" {
					label = fmt.Sprintf("pdf (%s)", a.Key)
				}
				add(resolve(base, a.Val), label)
			}
		}
	})
	return links, nil
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// walk visits every node depth-first, tracking marquee nesting.
func walk(n *html.Node, fn func(n *html.Node, inMarquee bool)) {
	var rec func(n *html.Node, inMarquee bool)
	rec = func(n *html.Node, inMarquee bool) {
		if n.Type == html.ElementNode && n.Data == "marquee" {
			inMarquee = true
		}
		fn(n, inMarquee)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c, inMarquee)
		}
	}
	rec(n, false)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func scriptText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
