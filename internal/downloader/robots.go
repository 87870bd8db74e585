package downloader

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"imgharvest/pkg/logger"
)

// DefaultRobotsAgent is the user agent matched against robots.txt groups
const DefaultRobotsAgent = "imgharvest"

// RobotsChecker fetches /robots.txt once per origin and caches it for the run.
// Unreachable or unparsable robots files allow everything.
type RobotsChecker struct {
	httpClient *http.Client
	agent      string
	userAgent  string
	timeout    time.Duration
	cache      map[string]*robotstxt.RobotsData
	mu         sync.Mutex
	logger     logger.Logger
}

// NewRobotsChecker creates a checker. agent is matched against robots groups,
// userAgent is sent on the robots request.
func NewRobotsChecker(httpClient *http.Client, agent, userAgent string, timeout time.Duration, log logger.Logger) *RobotsChecker {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if agent == "" {
		agent = DefaultRobotsAgent
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &RobotsChecker{
		httpClient: httpClient,
		agent:      agent,
		userAgent:  userAgent,
		timeout:    timeout,
		cache:      make(map[string]*robotstxt.RobotsData),
		logger:     log,
	}
}

// Allowed reports whether rawURL may be fetched
func (rc *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := rc.lookup(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	allowed := data.TestAgent(path, rc.agent)
	if !allowed {
		rc.logger.DebugWithFields("robots.txt disallows URL", map[string]interface{}{
			"url":   rawURL,
			"agent": rc.agent,
		})
	}
	return allowed
}

// lookup returns the cached robots data for origin, fetching it on first use.
// A nil result means everything is allowed.
func (rc *RobotsChecker) lookup(ctx context.Context, origin string) *robotstxt.RobotsData {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if data, ok := rc.cache[origin]; ok {
		return data
	}

	data := rc.fetch(ctx, origin)
	rc.cache[origin] = data
	return data
}

func (rc *RobotsChecker) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	if rc.userAgent != "" {
		req.Header.Set("User-Agent", rc.userAgent)
	}

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		rc.logger.DebugWithFields("robots.txt unreachable, allowing all", map[string]interface{}{
			"origin": origin,
			"error":  err.Error(),
		})
		return nil
	}
	defer resp.Body.Close()

	// robotstxt treats 5xx as disallow-all; an unreachable file allows everything here
	if resp.StatusCode >= 500 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rc.logger.DebugWithFields("robots.txt unparsable, allowing all", map[string]interface{}{
			"origin": origin,
			"error":  err.Error(),
		})
		return nil
	}
	return data
}
