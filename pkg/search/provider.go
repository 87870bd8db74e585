package search

import (
	"fmt"
	"net/http"

	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
)

// Providers lists the supported provider names
var Providers = []string{"duckduckgo", "bing"}

// New builds the provider named in cfg.Provider on top of httpClient
func New(cfg config.SearchConfig, httpClient *http.Client, log logger.Logger) (Provider, error) {
	client := NewClient(httpClient, cfg.UserAgent, cfg.RequestTimeout, log)

	switch cfg.Provider {
	case "", "duckduckgo":
		return NewDuckDuckGo(client, cfg.DuckDuckGoURL, cfg.Locale, ratelimit.NewPacer(cfg.PageDelay), log), nil
	case "bing":
		return NewBing(client, cfg.BingURL, log), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want one of %v)", cfg.Provider, Providers)
	}
}
