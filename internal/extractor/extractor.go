// Package extractor finds hyperlink targets in post HTML.
package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// hrefPattern is the fallback scan used when the document cannot be parsed
var hrefPattern = regexp.MustCompile(`(?i)<(?:a|area)\b[^>]*?\bhref\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)

// Extractor pulls absolute http(s) link targets out of HTML.
// Relative hrefs are resolved against the base URL; without one they are dropped.
type Extractor struct {
	base *url.URL
}

// New creates an extractor. baseURL may be empty.
func New(baseURL string) (*Extractor, error) {
	if strings.TrimSpace(baseURL) == "" {
		return &Extractor{}, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must start with http:// or https://")
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base URL must include a host")
	}

	return &Extractor{base: base}, nil
}

// ExtractLinks extracts absolute links from html without a base URL
func ExtractLinks(html string) []string {
	return (&Extractor{}).Extract(html)
}

// Extract returns the distinct link targets of anchor-like elements in html,
// in document order. It never fails: unparseable markup falls back to a regex scan
// and an empty body yields an empty slice.
func (e *Extractor) Extract(html string) []string {
	links := make([]string, 0)
	if strings.TrimSpace(html) == "" {
		return links
	}

	hrefs, err := scanDocument(html)
	if err != nil {
		slog.Debug("HTML parse failed, falling back to pattern scan", "error", err)
		hrefs = scanPattern(html)
	}

	seen := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		link, ok := e.normalize(href)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	return links
}

func scanDocument(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}

func scanPattern(html string) []string {
	var hrefs []string
	for _, m := range hrefPattern.FindAllStringSubmatch(html, -1) {
		for _, group := range m[1:] {
			if group != "" {
				hrefs = append(hrefs, group)
				break
			}
		}
	}
	return hrefs
}

// normalize resolves href into an absolute http(s) URL without fragment
func (e *Extractor) normalize(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	if !u.IsAbs() {
		switch {
		case e.base != nil:
			u = e.base.ResolveReference(u)
		case strings.HasPrefix(href, "//"):
			u.Scheme = "https"
		default:
			return "", false
		}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
