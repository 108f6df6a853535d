// Package linkextract parses web links out of raw message text.
package linkextract

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)

// ExtractURLs returns the distinct web URLs found in text, in order of first
// appearance. Trailing sentence punctuation is stripped from each match.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)

	var urls []string

	seen := make(map[string]bool)

	for _, match := range matches {
		raw := strings.TrimRight(match, ".,;:!?)")
		if raw == "" || seen[raw] {
			continue
		}

		if _, err := url.Parse(raw); err != nil {
			continue
		}

		seen[raw] = true
		urls = append(urls, raw)
	}

	return urls
}

// Domain returns the lowercased host of rawURL, or "" if it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}

// Provider derives a human-readable source name from a URL: the first label
// of the host with any www. prefix removed, capitalized.
func Provider(rawURL string) string {
	host := Domain(rawURL)
	if host == "" {
		return "Web"
	}

	host = strings.TrimPrefix(host, "www.")

	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "Web"
	}

	return strings.ToUpper(label[:1]) + label[1:]
}
