package web

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	previewChars = 2000
	feedEntries  = 10
)

var (
	removedElements  = "script, style, nav, footer, header, aside"
	contentSelectors = []string{
		"main", "article", ".content", ".main-content",
		"#content", "#main", ".post-content", ".entry-content",
	}
)

func render(rawURL, contentType string, body []byte) (*Page, error) {
	switch {
	case strings.Contains(contentType, "text/html"):
		return renderHTML(rawURL, contentType, body)
	case strings.Contains(contentType, "application/pdf"):
		return &Page{
			URL:  rawURL,
			Text: fmt.Sprintf("PDF content from %s (PDF parsing from URL is not supported)", rawURL),
		}, nil
	case strings.Contains(contentType, "text/plain"):
		text, err := decode(body, contentType)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		return &Page{URL: rawURL, Text: text}, nil
	case strings.Contains(contentType, "application/rss+xml"), strings.Contains(contentType, "application/atom+xml"):
		return renderFeed(rawURL, body)
	default:
		preview := []rune(string(body))
		if len(preview) > previewChars {
			preview = preview[:previewChars]
		}
		return &Page{
			URL:  rawURL,
			Text: fmt.Sprintf("Content from %s:\n%s...", rawURL, string(preview)),
		}, nil
	}
}

// decode converts body to UTF-8 using the charset named in contentType, or
// sniffed from the content when the header names none.
func decode(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}

func renderHTML(rawURL, contentType string, body []byte) (*Page, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("decode HTML: %w", err)}
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse HTML: %w", err)}
	}

	doc.Find(removedElements).Remove()

	title := "No title"
	if sel := doc.Find("title").First(); sel.Length() > 0 {
		title = strings.TrimSpace(sel.Text())
	}

	var main *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			main = sel
			break
		}
	}
	if main == nil {
		main = doc.Find("body").First()
		if main.Length() == 0 {
			main = doc.Selection
		}
	}

	var lines []string
	for _, n := range main.Nodes {
		collectText(n, &lines)
	}

	return &Page{
		URL:   rawURL,
		Title: title,
		Text:  fmt.Sprintf("Title: %s\nURL: %s\n\nContent:\n%s", title, rawURL, strings.Join(lines, "\n")),
	}, nil
}

// collectText appends every non-blank text node below n, trimmed, in document order.
func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		for _, line := range strings.Split(n.Data, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				*lines = append(*lines, line)
			}
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

func renderFeed(rawURL string, body []byte) (*Page, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse feed: %w", err)}
	}

	feedTitle := feed.Title
	if feedTitle == "" {
		feedTitle = "Unknown"
	}
	parts := []string{fmt.Sprintf("RSS Feed: %s\nURL: %s\n", feedTitle, rawURL)}

	items := feed.Items
	if len(items) > feedEntries {
		items = items[:feedEntries]
	}
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = "No title"
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		if summary == "" {
			summary = "No summary"
		}
		parts = append(parts, fmt.Sprintf("Article: %s\nLink: %s\nSummary: %s\n", title, item.Link, summary))
	}

	return &Page{URL: rawURL, Title: feedTitle, Text: strings.Join(parts, "\n")}, nil
}
