// Package scrape fetches a web page and converts it to Markdown blocks
// used to pre-fill a new article's document.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

// Result is the extracted page: its title and the selected fragment as
// Markdown.
type Result struct {
	Title    string
	Markdown string
}

// Page downloads url and converts the fragment matched by selector to
// Markdown. Selector supports #id, .class, and tag forms; an empty
// selector takes the body.
func Page(ctx context.Context, url, selector string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: build request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape: unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape: read body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("scrape: parse html: %w", err)
	}

	if selector == "" {
		selector = "body"
	}
	node, err := selectNode(doc, selector)
	if err != nil {
		return nil, fmt.Errorf("scrape: select %q: %w", selector, err)
	}

	md, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		return nil, fmt.Errorf("scrape: convert to markdown: %w", err)
	}

	return &Result{
		Title:    pageTitle(doc),
		Markdown: strings.TrimSpace(string(md)),
	}, nil
}

// Blocks turns the scraped Markdown into editor blocks: one block per
// line group, headings recognised by their # prefix. The editor treats
// the rest as plain paragraphs.
func (r *Result) Blocks() []models.Block {
	var blocks []models.Block
	for _, chunk := range strings.Split(r.Markdown, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if level, text, ok := parseHeading(chunk); ok {
			blocks = append(blocks, models.Block{
				Type:    "heading",
				Props:   map[string]any{"level": level},
				Content: text,
			})
			continue
		}
		blocks = append(blocks, models.Block{Type: "paragraph", Content: chunk})
	}
	return blocks
}

func parseHeading(line string) (int, string, bool) {
	if !strings.HasPrefix(line, "#") || strings.Contains(line, "\n") {
		return 0, "", false
	}
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 || level >= len(line) || line[level] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(line[level:]), true
}

// selectNode finds a node by a minimal CSS-ish selector: #id, .class, or
// a bare tag name.
func selectNode(doc *html.Node, selector string) (*html.Node, error) {
	switch {
	case strings.HasPrefix(selector, "#"):
		return findNode(doc, func(n *html.Node) bool {
			return hasAttr(n, "id", strings.TrimPrefix(selector, "#"))
		})
	case strings.HasPrefix(selector, "."):
		class := strings.TrimPrefix(selector, ".")
		return findNode(doc, func(n *html.Node) bool {
			for _, attr := range n.Attr {
				if attr.Key == "class" && strings.Contains(attr.Val, class) {
					return true
				}
			}
			return false
		})
	default:
		return findNode(doc, func(n *html.Node) bool {
			return n.Data == selector
		})
	}
}

func hasAttr(n *html.Node, key, val string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key && attr.Val == val {
			return true
		}
	}
	return false
}

func findNode(n *html.Node, match func(*html.Node) bool) (*html.Node, error) {
	if n.Type == html.ElementNode && match(n) {
		return n, nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found, err := findNode(c, match); err == nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("no matching element")
}

// pageTitle extracts the contents of the document's <title>.
func pageTitle(doc *html.Node) string {
	node, err := findNode(doc, func(n *html.Node) bool { return n.Data == "title" })
	if err != nil || node.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(node.FirstChild.Data)
}
