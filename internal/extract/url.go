// Package extract obtains raw text from a job's input: web articles are
// fetched and stripped locally, uploaded documents (PDF, images) go to
// the external extraction service that owns the parsing and OCR models.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"newsreader/internal/entity"
)

// Some article hosts refuse requests without a browser user agent.
const browserUserAgent = "Mozilla/5.0"

// URLExtractor pulls the paragraph text out of an article page.
type URLExtractor struct {
	client    *http.Client
	userAgent string
}

func NewURLExtractor(timeout time.Duration) *URLExtractor {
	return &URLExtractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: browserUserAgent,
	}
}

func (e *URLExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrExtraction, err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch article: %v", entity.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch article: status %s", entity.ErrExtraction, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse article: %v", entity.ErrExtraction, err)
	}

	text := paragraphText(doc)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no paragraph text in page", entity.ErrExtraction)
	}
	return text, nil
}

// paragraphText collects the text content of every <p> element, one
// paragraph per line.
func paragraphText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
