package builtin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hupe1980/agentstudio/tool"
)

// WebScraperID is the registry id of the web scraper tool.
const WebScraperID = "web_scraper"

// Web scraper configuration keys.
const (
	ConfigTimeout   = "timeout"
	ConfigMaxChars  = "max_chars"
	ConfigMaxBytes  = "max_bytes"
	ConfigUserAgent = "user_agent"
	ConfigStripHTML = "strip_html"
)

const defaultMaxBytes = 2 << 20

// WebScraper fetches a URL over HTTP and returns its (optionally tag
// stripped) body text.
type WebScraper struct {
	client    *http.Client
	maxChars  int
	maxBytes  int
	userAgent string
	stripHTML bool
}

// NewWebScraper is the tool.Factory of the web scraper.
func NewWebScraper(cfg tool.Config) tool.Tool {
	return &WebScraper{
		client:    &http.Client{Timeout: cfg.Duration(ConfigTimeout, 15*time.Second)},
		maxChars:  cfg.Int(ConfigMaxChars, 8000),
		maxBytes:  cfg.Int(ConfigMaxBytes, defaultMaxBytes),
		userAgent: cfg.String(ConfigUserAgent, "agentstudio-web-scraper/1.0"),
		stripHTML: cfg.Bool(ConfigStripHTML, true),
	}
}

// Descriptor implements tool.Tool.
func (w *WebScraper) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		ID:          WebScraperID,
		Name:        "Web Scraper",
		Description: "Fetches a web page and returns its text content.",
		Category:    "web",
		Tags:        []string{"http", "scraping"},
		Parameters: []tool.ParameterSpec{
			tool.StringParam("url", "Absolute http(s) URL to fetch"),
		},
	}
}

// Execute implements tool.Tool.
func (w *WebScraper) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	url, _ := params["url"].(string)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return tool.NewFailure("url must start with http:// or https://"), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tool.NewFailure("invalid url: %v", err), nil
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return tool.NewFailure("fetch %s: status %d", url, resp.StatusCode), nil
	}

	// One extra byte tells a body of exactly maxBytes apart from a longer one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(w.maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	truncated := len(body) > w.maxBytes
	if truncated {
		body = body[:w.maxBytes]
	}

	text := string(body)
	if w.stripHTML {
		text, err = extractText(body)
		if err != nil {
			return tool.NewFailure("parse %s: %v", url, err), nil
		}
	}
	if runes := []rune(text); len(runes) > w.maxChars {
		text = string(runes[:w.maxChars])
		truncated = true
	}

	return tool.NewSuccess(map[string]any{
		"url":          url,
		"status_code":  resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"content":      text,
		"truncated":    truncated,
	}), nil
}

// extractText returns the visible text of an HTML document with runs of
// whitespace collapsed to a single space.
func extractText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var words []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(words, " "), nil
}
