package search

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
)

// DuckDuckGo queries the DuckDuckGo image endpoint through its token
// handshake and falls back to scraping the HTML page when it fails
type DuckDuckGo struct {
	client *Client
	origin string
	locale string
	pacer  ratelimit.Limiter
	logger logger.Logger
}

// NewDuckDuckGo creates a DuckDuckGo provider. pacer spaces result page requests.
func NewDuckDuckGo(client *Client, origin, locale string, pacer ratelimit.Limiter, log logger.Logger) *DuckDuckGo {
	if origin == "" {
		origin = DuckDuckGoURL
	}
	if locale == "" {
		locale = DefaultLocale
	}
	if pacer == nil {
		pacer = ratelimit.Nop()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &DuckDuckGo{
		client: client,
		origin: strings.TrimRight(origin, "/"),
		locale: locale,
		pacer:  pacer,
		logger: log.WithField("provider", "duckduckgo"),
	}
}

// Name returns the provider name
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search collects up to max distinct image URLs for keyword
func (d *DuckDuckGo) Search(ctx context.Context, keyword string, max int) Result {
	if max <= 0 {
		return Result{Keyword: keyword, Source: SourceJSONPagination}
	}

	token, err := d.token(ctx, keyword)
	if err != nil {
		d.logger.WarnWithFields("token handshake failed, falling back to HTML scrape", map[string]interface{}{
			"keyword": keyword,
			"error":   err.Error(),
		})
		return d.scrape(ctx, keyword, max)
	}

	return d.paginate(ctx, keyword, token, max)
}

// token performs the first step of the handshake
func (d *DuckDuckGo) token(ctx context.Context, keyword string) (string, error) {
	body, err := d.client.GetText(ctx, TokenURL(d.origin, keyword))
	if err != nil {
		return "", err
	}

	token, ok := ExtractToken(body)
	if !ok {
		return "", errors.New(errors.ErrorTypeHandshake, 0, "no vqd token for %q", keyword)
	}
	return token, nil
}

// paginate follows result pages until max URLs, an empty page or a missing cursor
func (d *DuckDuckGo) paginate(ctx context.Context, keyword, token string, max int) Result {
	c := newCollector(max)
	pageURL := DataURL(d.origin, d.locale, keyword, token)
	d.pacer.Reset()

	for page := 1; !c.full(); page++ {
		if err := d.pacer.Wait(ctx); err != nil {
			return c.result(keyword, SourceJSONPagination, err)
		}

		var data imagePage
		if err := d.client.GetJSON(ctx, pageURL, &data); err != nil {
			return c.result(keyword, SourceJSONPagination, err)
		}
		if len(data.Results) == 0 {
			break
		}

		for _, item := range data.Results {
			if u, ok := item.URL(); ok {
				c.add(u)
			}
		}

		d.logger.DebugWithFields("result page processed", map[string]interface{}{
			"keyword":   keyword,
			"page":      page,
			"collected": len(c.urls),
		})

		if data.Next == nil || *data.Next == "" {
			break
		}
		next, err := NextURL(d.origin, *data.Next, d.locale, token)
		if err != nil {
			return c.result(keyword, SourceJSONPagination,
				errors.New(errors.ErrorTypeParsing, 0, "%v", err))
		}
		pageURL = next
	}

	return c.result(keyword, SourceJSONPagination, nil)
}

// scrape collects img sources from the HTML result page
func (d *DuckDuckGo) scrape(ctx context.Context, keyword string, max int) Result {
	c := newCollector(max)

	doc, err := d.client.GetDocument(ctx, FallbackURL(d.origin, keyword))
	if err != nil {
		return c.result(keyword, SourceHTMLScrape, err)
	}

	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Attr("data-src")
		}
		if strings.HasPrefix(src, "http") {
			c.add(src)
		}
		return !c.full()
	})

	return c.result(keyword, SourceHTMLScrape, nil)
}
