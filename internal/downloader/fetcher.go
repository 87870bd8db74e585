package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/storage"
)

// DownloadResult is the outcome of fetching one URL
type DownloadResult struct {
	URL      string
	Success  bool
	Path     string
	Size     int64
	Message  string
	Attempts int
	Duration time.Duration
	Err      error
}

// ImageStorage persists a downloaded body
type ImageStorage interface {
	Save(r io.Reader, url string, bounds storage.Bounds) (storage.SavedFile, error)
}

// RobotsPolicy decides whether a URL may be fetched
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// Options configures a Fetcher
type Options struct {
	// Timeout bounds each attempt
	Timeout time.Duration
	// UserAgent is sent with every request
	UserAgent string
	// Retry drives the attempt loop; nil means three attempts with linear backoff
	Retry *retry.Config
	// Bounds limits accepted body sizes
	Bounds storage.Bounds
	// Robots is consulted before the first attempt when set
	Robots RobotsPolicy
}

// Fetcher downloads images one at a time and writes them through storage
type Fetcher struct {
	httpClient *http.Client
	storage    ImageStorage
	opts       Options
	logger     logger.Logger
}

// NewFetcher creates a Fetcher
func NewFetcher(httpClient *http.Client, store ImageStorage, opts Options, log logger.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = log
	}

	return &Fetcher{
		httpClient: httpClient,
		storage:    store,
		opts:       opts,
		logger:     log,
	}
}

// Fetch downloads url. It never returns an error: failures are described by
// the result's Message, and a failed fetch leaves no file behind.
func (f *Fetcher) Fetch(ctx context.Context, url string) DownloadResult {
	start := time.Now()
	result := DownloadResult{URL: url}

	if f.opts.Robots != nil && !f.opts.Robots.Allowed(ctx, url) {
		result.Err = errors.New(errors.ErrorTypePolicy, 0, "disallowed by robots.txt")
		result.Message = errors.Reason(result.Err)
		result.Duration = time.Since(start)
		return result
	}

	out := retry.Run(ctx, f.opts.Retry, func(ctx context.Context, attempt int) retry.Result[storage.SavedFile] {
		return f.attempt(ctx, url, attempt)
	})

	result.Attempts = out.Attempts
	result.Duration = time.Since(start)

	if out.OK() {
		result.Success = true
		result.Path = out.Value.Path
		result.Size = out.Value.Size
		result.Message = out.Value.Path
		return result
	}

	result.Err = out.Err
	if out.Exhausted && out.Attempts > 1 {
		result.Message = fmt.Sprintf("failed after %d attempts: %s", out.Attempts, errors.Reason(out.Err))
	} else {
		result.Message = errors.Reason(out.Err)
	}
	return result
}

// attempt performs a single request and write
func (f *Fetcher) attempt(ctx context.Context, url string, attempt int) retry.Result[storage.SavedFile] {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent[storage.SavedFile](
			errors.New(errors.ErrorTypeParsing, 0, "invalid URL: %v", err))
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	f.logger.DebugWithFields("downloading image", map[string]interface{}{
		"url":     url,
		"attempt": attempt,
	})

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return retry.Failure[storage.SavedFile](
			errors.New(errors.ErrorTypeNetwork, 0, "request error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retry.Failure[storage.SavedFile](errors.FromStatusCode(resp.StatusCode, url))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return retry.Permanent[storage.SavedFile](
			errors.New(errors.ErrorTypeNotImage, resp.StatusCode, "not an image: %s", contentType))
	}

	if max := f.opts.Bounds.MaxSize; max > 0 && resp.ContentLength > max {
		return retry.Permanent[storage.SavedFile](
			errors.New(errors.ErrorTypePolicy, resp.StatusCode, "file larger than %d bytes", max))
	}

	saved, err := f.storage.Save(resp.Body, url, f.opts.Bounds)
	if err != nil {
		if errors.IsRetryable(errors.TypeOf(err)) {
			return retry.Failure[storage.SavedFile](err)
		}
		return retry.Permanent[storage.SavedFile](err)
	}

	return retry.Success(saved)
}
