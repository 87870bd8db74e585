package search

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DuckDuckGoURL is the default DuckDuckGo origin
	DuckDuckGoURL = "https://duckduckgo.com"

	// BingURL is the default Bing origin
	BingURL = "https://www.bing.com"

	// DuckDuckGoDataEndpoint serves JSON image result pages
	DuckDuckGoDataEndpoint = "/i.js"

	// BingImagesEndpoint serves the HTML image result page
	BingImagesEndpoint = "/images/search"

	// DefaultLocale is applied when no locale is configured
	DefaultLocale = "us-en"
)

// vqdPatterns locate the session token in the token page, tried in order
var vqdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vqd='([\d-]+)'`),
	regexp.MustCompile(`vqd="([\d-]+)"`),
	regexp.MustCompile(`vqd=([\d-]+)&`),
}

// ExtractToken returns the first session token found in body
func ExtractToken(body string) (string, bool) {
	for _, re := range vqdPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// TokenURL is the page carrying the session token for keyword
func TokenURL(origin, keyword string) string {
	params := url.Values{}
	params.Set("q", keyword)
	return fmt.Sprintf("%s/?%s", strings.TrimRight(origin, "/"), params.Encode())
}

// DataURL is the first JSON result page for keyword
func DataURL(origin, locale, keyword, token string) string {
	params := url.Values{}
	params.Set("l", locale)
	params.Set("o", "json")
	params.Set("q", keyword)
	params.Set("vqd", token)
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(origin, "/"), DuckDuckGoDataEndpoint, params.Encode())
}

// NextURL resolves a pagination cursor against origin. The session token,
// o=json and locale are re-applied when the cursor omits them.
func NextURL(origin, next, locale, token string) (string, error) {
	base, err := url.Parse(strings.TrimRight(origin, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid cursor %q: %w", next, err)
	}

	resolved := base.ResolveReference(ref)
	params := resolved.Query()
	if params.Get("vqd") == "" {
		params.Set("vqd", token)
	}
	if params.Get("o") == "" {
		params.Set("o", "json")
	}
	if params.Get("l") == "" {
		params.Set("l", locale)
	}
	resolved.RawQuery = params.Encode()

	return resolved.String(), nil
}

// FallbackURL is the HTML image page scraped when the handshake fails
func FallbackURL(origin, keyword string) string {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("iax", "images")
	params.Set("ia", "images")
	return fmt.Sprintf("%s/?%s", strings.TrimRight(origin, "/"), params.Encode())
}

// BingSearchURL is the Bing image result page for keyword
func BingSearchURL(origin, keyword string) string {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("form", "HDRSC2")
	params.Set("first", "1")
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(origin, "/"), BingImagesEndpoint, params.Encode())
}
