package harvester

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"imgharvest/internal/downloader"
	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/metadata"
	"imgharvest/pkg/metrics"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/search"
	"imgharvest/pkg/storage"
)

// KeywordSummary counts the outcomes of one keyword
type KeywordSummary struct {
	Keyword    string
	Found      int
	Duplicates int
	Downloaded int
	Failed     int
}

// Summary is the outcome of a harvest
type Summary struct {
	Keywords    []KeywordSummary
	Total       int
	Interrupted bool
}

// Dependencies are the collaborators of a Run
type Dependencies struct {
	Provider Provider
	Fetcher  Fetcher
	// Recorder is nil when the metadata stage is disabled
	Recorder Recorder
	Reporter Reporter
	// Pacer spaces consecutive downloads
	Pacer       ratelimit.Limiter
	Metrics     *metrics.Metrics
	Logger      logger.Logger
	PerKeyword  int
	MetricsFile string
}

// Run is the state of one harvest. The seen-set lives here, so two runs
// never share deduplication state.
type Run struct {
	ID          string
	seen        *SeenSet
	provider    Provider
	fetcher     Fetcher
	recorder    Recorder
	reporter    Reporter
	pacer       ratelimit.Limiter
	metrics     *metrics.Metrics
	logger      logger.Logger
	perKeyword  int
	metricsFile string
}

// NewRun assembles a Run from explicit dependencies
func NewRun(deps Dependencies) *Run {
	id := uuid.NewString()

	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if deps.Pacer == nil {
		deps.Pacer = ratelimit.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &Run{
		ID:          id,
		seen:        NewSeenSet(),
		provider:    deps.Provider,
		fetcher:     deps.Fetcher,
		recorder:    deps.Recorder,
		reporter:    deps.Reporter,
		pacer:       deps.Pacer,
		metrics:     deps.Metrics,
		logger:      log.WithField("run_id", id),
		perKeyword:  deps.PerKeyword,
		metricsFile: deps.MetricsFile,
	}
}

// New builds a Run from configuration. Creating the output directory is
// the only failure that aborts the run before it starts.
func New(cfg *config.Config, reporter Reporter, log logger.Logger) (*Run, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{}

	provider, err := search.New(cfg.Search, httpClient, log)
	if err != nil {
		return nil, err
	}

	opts := downloader.Options{
		Timeout:   cfg.Download.Timeout,
		UserAgent: cfg.Search.UserAgent,
		Retry: &retry.Config{
			MaxAttempts: cfg.RetryAttempts(),
			Backoff:     &retry.LinearBackoff{BaseDelay: cfg.Download.RetryBaseDelay},
			Logger:      log,
		},
		Bounds: storage.Bounds{
			MinSize: cfg.Download.MinFileSize,
			MaxSize: cfg.Download.MaxFileSize,
		},
	}
	if cfg.Download.RespectRobots {
		opts.Robots = downloader.NewRobotsChecker(httpClient, "", cfg.Search.UserAgent, cfg.Download.Timeout, log)
	}

	deps := Dependencies{
		Provider:    provider,
		Fetcher:     downloader.NewFetcher(httpClient, store, opts, log),
		Reporter:    reporter,
		Pacer:       ratelimit.NewPacer(cfg.Download.Delay),
		Metrics:     metrics.New(),
		Logger:      log,
		PerKeyword:  cfg.Search.PerKeyword,
		MetricsFile: cfg.Metrics.File,
	}

	if cfg.Metadata.Enabled {
		mstore, err := metadata.NewStore(cfg.Metadata.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata store: %w", err)
		}
		deps.Recorder = metadata.NewRecorder(mstore, log)
	}

	return NewRun(deps), nil
}

// Metrics returns the run's counters
func (r *Run) Metrics() *metrics.Metrics {
	return r.metrics
}

// Logger returns the run-scoped logger
func (r *Run) Logger() logger.Logger {
	return r.logger
}

// Harvest processes keywords in order and returns the per-keyword counts.
// Cancelling ctx stops the loop between operations.
func (r *Run) Harvest(ctx context.Context, keywords []string) Summary {
	start := time.Now()
	var summary Summary

	r.logger.InfoWithFields("Harvest started", map[string]interface{}{
		"provider":    r.provider.Name(),
		"keywords":    len(keywords),
		"per_keyword": r.perKeyword,
		"metadata":    r.recorder != nil,
	})

	for _, keyword := range keywords {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		ks := r.harvestKeyword(ctx, keyword)
		summary.Keywords = append(summary.Keywords, ks)
		summary.Total += ks.Downloaded
	}
	if ctx.Err() != nil {
		summary.Interrupted = true
	}

	r.reporter.Finished(summary.Total)

	elapsed := time.Since(start)
	r.metrics.RunDuration.Set(elapsed.Seconds())
	r.logger.InfoWithFields("Harvest finished", map[string]interface{}{
		"total":       summary.Total,
		"seen":        r.seen.Len(),
		"duration":    elapsed,
		"interrupted": summary.Interrupted,
	})

	if r.metricsFile != "" {
		if err := r.metrics.WriteTextfile(r.metricsFile); err != nil {
			r.logger.WithError(err).Warn("Metrics not written")
		}
	}

	return summary
}

func (r *Run) harvestKeyword(ctx context.Context, keyword string) KeywordSummary {
	ks := KeywordSummary{Keyword: keyword}
	r.reporter.KeywordStarted(keyword)

	result := r.provider.Search(ctx, keyword, r.perKeyword)
	ks.Found = len(result.URLs)
	logger.LogSearch(r.logger, r.provider.Name(), keyword, string(result.Source), ks.Found, result.Err)
	r.metrics.ObserveSearch(r.provider.Name(), string(result.Source), ks.Found, result.Err != nil)
	r.reporter.URLsFound(keyword, ks.Found)

	for _, url := range result.URLs {
		if ctx.Err() != nil {
			break
		}

		if !r.seen.IsNew(url) {
			ks.Duplicates++
			r.metrics.Duplicates.Inc()
			r.reporter.Duplicate(url)
			continue
		}

		if err := r.pacer.Wait(ctx); err != nil {
			break
		}

		dl := r.fetcher.Fetch(ctx, url)
		r.metrics.ObserveDownload(dl.Success, dl.Size, dl.Attempts, dl.Duration)
		logger.LogDownload(r.logger, keyword, url, dl.Attempts, dl.Success, dl.Message)

		if !dl.Success {
			ks.Failed++
			r.reporter.DownloadFailed(url, dl.Message)
			continue
		}

		ks.Downloaded++
		if r.recorder != nil {
			_, stored := r.recorder.Record(ctx, keyword, url, dl.Path)
			r.metrics.ObserveMetadata(stored)
		}
		r.reporter.Downloaded(url, dl.Path, dl.Size)
	}

	r.reporter.KeywordFinished(keyword, ks.Downloaded)
	return ks
}
