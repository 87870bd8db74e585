package search

import (
	"context"
	"strings"
)

// Source names how a Result's URLs were obtained
type Source string

const (
	SourceJSONPagination Source = "json-pagination"
	SourceHTMLScrape     Source = "html-scrape"
	SourceAnchorMetadata Source = "anchor-metadata"
)

// Result is the outcome of one query. URLs are distinct and in provider
// ranking order. Err holds the last failure and is informational only: a
// Result with Err set may still carry URLs collected before the failure.
type Result struct {
	Keyword string
	Source  Source
	URLs    []string
	Err     error
}

// Provider turns a keyword into candidate image URLs
type Provider interface {
	// Name identifies the provider in logs and metrics
	Name() string
	// Search returns at most max distinct URLs and never fails
	Search(ctx context.Context, keyword string, max int) Result
}

// imagePage is one JSON result page of the DuckDuckGo data endpoint
type imagePage struct {
	Results []imageItem `json:"results"`
	Next    *string     `json:"next,omitempty"`
}

// imageItem is a single JSON result entry
type imageItem struct {
	Image     *string `json:"image,omitempty"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

// URL returns the full-size image, else the thumbnail
func (i imageItem) URL() (string, bool) {
	return firstNonEmpty(i.Image, i.Thumbnail)
}

// anchorMetadata is the relaxed-JSON object in a Bing a.iusc "m" attribute
type anchorMetadata struct {
	MediaURL  *string `json:"murl,omitempty"`
	Thumbnail *string `json:"turl,omitempty"`
}

// URL returns the media URL, else the thumbnail
func (a anchorMetadata) URL() (string, bool) {
	return firstNonEmpty(a.MediaURL, a.Thumbnail)
}

func firstNonEmpty(values ...*string) (string, bool) {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v, true
		}
	}
	return "", false
}

// collector accumulates distinct URLs up to a cap
type collector struct {
	max  int
	seen map[string]struct{}
	urls []string
}

func newCollector(max int) *collector {
	return &collector{max: max, seen: make(map[string]struct{})}
}

// add records url unless it was already collected or the cap is reached
func (c *collector) add(url string) {
	if c.full() {
		return
	}
	if _, ok := c.seen[url]; ok {
		return
	}
	c.seen[url] = struct{}{}
	c.urls = append(c.urls, url)
}

func (c *collector) full() bool {
	return len(c.urls) >= c.max
}

func (c *collector) result(keyword string, source Source, err error) Result {
	return Result{Keyword: keyword, Source: source, URLs: c.urls, Err: err}
}
