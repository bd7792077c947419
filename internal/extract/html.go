package extract

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// HTMLDocument is the matching-relevant view of an HTML page
type HTMLDocument struct {
	Title    string
	Text     string            // Visible text, scripts and styles skipped
	Meta     map[string]string // <meta name=... content=...>, lower-case names
	Headings []string
}

// ParseHTML parses an HTML page into its visible text and metadata
func ParseHTML(htmlContent string) (*HTMLDocument, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}

	doc := &HTMLDocument{
		Text: visibleText(root),
		Meta: map[string]string{},
	}

	if title := findFirst(root, isElement("title")); title != nil {
		doc.Title = nodeText(title)
	}

	for _, n := range findAll(root, isElement("meta")) {
		name := strings.ToLower(attr(n, "name"))
		if name == "" {
			name = strings.ToLower(attr(n, "property"))
		}
		if name != "" {
			doc.Meta[name] = strings.TrimSpace(attr(n, "content"))
		}
	}

	for _, n := range findAll(root, isHeading) {
		if text := nodeText(n); text != "" {
			doc.Headings = append(doc.Headings, text)
		}
	}

	return doc, nil
}

// visibleText collects text nodes, skipping scripts and styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
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
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	parts := []string{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := nodeText(c); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "h1", "h2", "h3":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}
