package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/go-site-audit/models"
)

// chromeSelector matches subtrees whose text is never audited.
const chromeSelector = "script, style, nav, header, footer, noscript, template"

// Extract parses rawHTML and returns its visible text and anchors. It never
// fails: malformed markup is parsed best-effort and unparseable input yields
// an empty page.
func Extract(rawHTML []byte, sourceURL string) models.ExtractedPage {
	page := models.ExtractedPage{
		SourceURL: sourceURL,
		Links:     []models.LinkRecord{},
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return page
	}

	// Links come from the whole document so navigation labels are audited
	// too; only the text view drops the chrome.
	page.Links = extractLinks(doc, documentBase(doc, sourceURL))

	doc.Find(chromeSelector).Remove()
	page.VisibleText = visibleText(doc.Nodes)
	return page
}

func extractLinks(doc *goquery.Document, base *url.URL) []models.LinkRecord {
	links := make([]models.LinkRecord, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || IsExcludedHref(href) {
			return
		}

		text := NormalizeText(s.Text())
		if text == "" {
			return
		}

		resolved, ok := ResolveHref(base, href)
		if !ok {
			return
		}

		links = append(links, models.LinkRecord{
			Text:        text,
			RawHref:     href,
			ResolvedURL: resolved,
		})
	})
	return links
}

// documentBase honours a <base href> element, falling back to sourceURL.
func documentBase(doc *goquery.Document, sourceURL string) *url.URL {
	source, err := url.Parse(sourceURL)
	if err != nil {
		source = nil
	}

	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return source
	}
	declared, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return source
	}
	if source != nil {
		return source.ResolveReference(declared)
	}
	if declared.IsAbs() {
		return declared
	}
	return nil
}

func visibleText(roots []*html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode, html.DoctypeNode:
			return
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return NormalizeText(strings.Join(parts, " "))
}
