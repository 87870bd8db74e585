package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// StatusTracker keeps running totals of a harvest
type StatusTracker struct {
	TotalDownloaded int
	TotalFailed     int
	TotalBytes      int64
	KeywordCount    int
	StartTime       time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetDownloadRate returns the average download rate (items per minute)
func (st *StatusTracker) GetDownloadRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalDownloaded) / elapsed
}

// Reporter prints human-readable progress for the operator. Output goes
// to an io.Writer so it never mixes with structured logs on stderr.
type Reporter struct {
	out     io.Writer
	quiet   bool
	tracker *StatusTracker
	mu      sync.Mutex
}

// NewReporter creates a reporter. In quiet mode only the final total is printed.
func NewReporter(out io.Writer, quiet bool) *Reporter {
	if out == nil {
		out = io.Discard
	}
	return &Reporter{
		out:     out,
		quiet:   quiet,
		tracker: NewStatusTracker(),
	}
}

// Tracker returns the running totals
func (r *Reporter) Tracker() *StatusTracker {
	return r.tracker
}

func (r *Reporter) printf(format string, args ...interface{}) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, format, args...)
}

// KeywordStarted prints the keyword banner
func (r *Reporter) KeywordStarted(keyword string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.KeywordCount++
	r.printf("\n%s\n", Magenta(fmt.Sprintf("=== Searching '%s' ===", keyword)))
}

// URLsFound prints how many candidate URLs the query returned
func (r *Reporter) URLsFound(keyword string, count int) {
	r.printf("Found %d URLs\n", count)
}

// Downloaded prints a successful download
func (r *Reporter) Downloaded(url, path string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.TotalDownloaded++
	r.tracker.TotalBytes += size
	r.printf(" %s %s %s\n", Green("+ downloaded:"), path, Dim("("+humanize.Bytes(uint64(size))+")"))
}

// DownloadFailed prints a failed download with its reason
func (r *Reporter) DownloadFailed(url, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.TotalFailed++
	r.printf("   %s %s %s\n", Red("error:"), reason, Dim(url))
}

// Duplicate prints a URL skipped by the seen-set
func (r *Reporter) Duplicate(url string) {
	r.printf("   %s %s\n", Dim("skip (seen):"), Dim(url))
}

// KeywordFinished prints the per-keyword count
func (r *Reporter) KeywordFinished(keyword string, downloaded int) {
	r.printf("Downloaded for '%s': %s\n", keyword, Yellow(fmt.Sprintf("%d", downloaded)))
}

// Finished prints the run total. It is printed even in quiet mode.
func (r *Reporter) Finished(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "\n%s %s\n", Cyan("Total downloaded:"), Green(fmt.Sprintf("%d", total)))
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "%s\n", Dim(fmt.Sprintf("%s in %s across %d keywords, %d failed",
		humanize.Bytes(uint64(r.tracker.TotalBytes)),
		r.tracker.GetElapsedTime().Round(time.Millisecond),
		r.tracker.KeywordCount,
		r.tracker.TotalFailed)))
}
