package fetch

import (
	"bytes"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// Content is everything extracted from one fetched page.
type Content struct {
	Title       string
	Description string
	Text        string
	Author      string
	PublishedAt time.Time
	ImageURL    string
	WordCount   int
}

// ExtractContent pulls article content from an HTML or feed body. Readability
// failures are not fatal; meta tags alone are an acceptable result.
func ExtractContent(body []byte, rawURL string, maxLen int) *Content {
	// A URL posted to the chat may point at an RSS/Atom feed rather than a
	// page; take the newest entry in that case.
	if feedContent, ok := tryExtractFeed(body, maxLen); ok {
		return feedContent
	}

	u, _ := url.Parse(rawURL)

	meta := extractMetaTags(body)

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return &Content{
			Title:       coalesce(meta.OGTitle, meta.Title),
			Description: coalesce(meta.OGDescription, meta.Description),
			ImageURL:    meta.OGImage,
			PublishedAt: parseDate(meta.PublishedTime),
		}
	}

	return &Content{
		Title:       coalesce(article.Title, meta.OGTitle, meta.Title),
		Description: coalesce(meta.OGDescription, meta.Description),
		Text:        truncate(article.TextContent, maxLen),
		Author:      coalesce(article.Byline, meta.Author),
		PublishedAt: parseDate(meta.PublishedTime),
		ImageURL:    meta.OGImage,
		WordCount:   countWords(article.TextContent),
	}
}

func tryExtractFeed(body []byte, maxLen int) (*Content, bool) {
	fp := gofeed.NewParser()

	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil || len(feed.Items) == 0 {
		return nil, false
	}

	item := feed.Items[0]

	return &Content{
		Title:       item.Title,
		Description: item.Description,
		Text:        truncate(stripTags(item.Content), maxLen),
		Author:      feedAuthor(item),
		PublishedAt: feedTime(item),
		ImageURL:    feedImage(item),
		WordCount:   countWords(item.Content),
	}, true
}

func feedAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		return item.Author.Name
	}

	if len(item.Authors) > 0 {
		return item.Authors[0].Name
	}

	return ""
}

func feedImage(item *gofeed.Item) string {
	if item.Image != nil {
		return item.Image.URL
	}

	for _, enclosure := range item.Enclosures {
		if strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}

	return ""
}

func feedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}

	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}

	return time.Time{}
}

type metaTags struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	OGImage       string
	Author        string
	PublishedTime string
}

func extractMetaTags(body []byte) metaTags {
	var meta metaTags

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return meta
	}

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name, content := getMetaAttrs(n)
				switch strings.ToLower(name) {
				case "description":
					meta.Description = content
				case "author":
					meta.Author = content
				case "og:title":
					meta.OGTitle = content
				case "og:description":
					meta.OGDescription = content
				case "og:image", "twitter:image":
					if meta.OGImage == "" {
						meta.OGImage = content
					}
				case "article:published_time":
					meta.PublishedTime = content
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return meta
}

func getMetaAttrs(n *html.Node) (string, string) {
	var name, content string

	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			name = attr.Val
		case "content":
			content = attr.Val
		}
	}

	return name, content
}

func stripTags(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var sb strings.Builder

	var traverse func(*html.Node)

	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

func coalesce(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}

	return ""
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)

	return string(runes[:max]) + "..."
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}

	return t
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
