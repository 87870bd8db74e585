package harvester

import (
	"context"

	"imgharvest/internal/downloader"
	"imgharvest/pkg/metadata"
	"imgharvest/pkg/search"
)

// Provider is the query stage
type Provider interface {
	Name() string
	Search(ctx context.Context, keyword string, max int) search.Result
}

// Fetcher is the fetch stage
type Fetcher interface {
	Fetch(ctx context.Context, url string) downloader.DownloadResult
}

// Recorder is the optional metadata stage
type Recorder interface {
	Record(ctx context.Context, keyword, url, path string) (metadata.Record, bool)
}

// Reporter receives operator-facing progress
type Reporter interface {
	KeywordStarted(keyword string)
	URLsFound(keyword string, count int)
	Downloaded(url, path string, size int64)
	DownloadFailed(url, reason string)
	Duplicate(url string)
	KeywordFinished(keyword string, downloaded int)
	Finished(total int)
}
