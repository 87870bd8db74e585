package search

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tailscale/hujson"

	"imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

// Bing scrapes the Bing image result page in a single request
type Bing struct {
	client *Client
	origin string
	logger logger.Logger
}

// NewBing creates a Bing provider
func NewBing(client *Client, origin string, log logger.Logger) *Bing {
	if origin == "" {
		origin = BingURL
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Bing{
		client: client,
		origin: strings.TrimRight(origin, "/"),
		logger: log.WithField("provider", "bing"),
	}
}

// Name returns the provider name
func (b *Bing) Name() string {
	return "bing"
}

// Search collects up to max distinct image URLs from a.iusc anchors
func (b *Bing) Search(ctx context.Context, keyword string, max int) Result {
	c := newCollector(max)
	if max <= 0 {
		return c.result(keyword, SourceAnchorMetadata, nil)
	}

	doc, err := b.client.GetDocument(ctx, BingSearchURL(b.origin, keyword))
	if err != nil {
		return c.result(keyword, SourceAnchorMetadata, err)
	}

	var lastErr error
	doc.Find("a.iusc").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, ok := s.Attr("m")
		if !ok {
			return true
		}

		meta, err := ParseAnchorMetadata(raw)
		if err != nil {
			lastErr = err
			b.logger.DebugWithFields("skipping anchor with unparsable metadata", map[string]interface{}{
				"keyword": keyword,
				"error":   err.Error(),
			})
			return true
		}
		if u, ok := meta.URL(); ok {
			c.add(u)
		}
		return !c.full()
	})

	return c.result(keyword, SourceAnchorMetadata, lastErr)
}

// ParseAnchorMetadata parses the relaxed-JSON "m" attribute of a Bing anchor.
// Comments and trailing commas are accepted; the text is never evaluated.
func ParseAnchorMetadata(raw string) (anchorMetadata, error) {
	var meta anchorMetadata

	standard, err := hujson.Standardize([]byte(raw))
	if err != nil {
		return meta, errors.New(errors.ErrorTypeParsing, 0, "invalid anchor metadata: %v", err)
	}
	if err := json.Unmarshal(standard, &meta); err != nil {
		return meta, errors.New(errors.ErrorTypeParsing, 0, "invalid anchor metadata: %v", err)
	}
	return meta, nil
}
