// Package search turns keywords into ranked candidate image URLs.
//
// Two providers are available:
//
// DuckDuckGo performs a two-step handshake. The keyword page is fetched to
// obtain the vqd session token, then JSON result pages are followed through
// their "next" cursor until enough URLs are collected. When the handshake
// fails the HTML image page is scraped for img sources instead.
//
// Bing fetches a single HTML result page and reads the relaxed-JSON "m"
// attribute of each a.iusc anchor.
//
// Providers never return errors. A failed request yields an empty or partial
// Result whose Err field records what went wrong.
//
//	provider, err := search.New(cfg.Search, http.DefaultClient, log)
//	if err != nil {
//	    return err
//	}
//	result := provider.Search(ctx, "oscilloscope", 20)
//	for _, u := range result.URLs {
//	    // fetch u
//	}
package search
