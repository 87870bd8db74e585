package metadata

import (
	"context"

	"imgharvest/pkg/logger"
)

// Recorder extracts metadata from downloaded files and hands it to a Store.
// It is best effort: failures are logged and never reach the caller.
type Recorder struct {
	store  Store
	logger logger.Logger
}

// NewRecorder creates a recorder writing to store
func NewRecorder(store Store, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Recorder{
		store:  store,
		logger: log.WithField("store", store.Name()),
	}
}

// Record builds and stores a row for the file at path. stored reports
// whether the store accepted it.
func (r *Recorder) Record(ctx context.Context, keyword, url, path string) (rec Record, stored bool) {
	rec = Record{
		Keyword:   keyword,
		URL:       url,
		LocalPath: path,
	}
	fields := map[string]interface{}{
		"keyword": keyword,
		"url":     url,
		"path":    path,
	}

	if w, h, err := Dimensions(path); err != nil {
		r.logger.WithError(err).WarnWithFields("Could not read image dimensions", fields)
	} else {
		rec.Width, rec.Height = &w, &h
	}

	if size, err := FileSize(path); err != nil {
		r.logger.WithError(err).WarnWithFields("Could not stat image", fields)
	} else {
		rec.SizeBytes = size
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.WithError(err).WarnWithFields("Metadata not stored", fields)
		return rec, false
	}

	r.logger.DebugWithFields("Metadata stored", map[string]interface{}{
		"path":         path,
		"size_bytes":   rec.SizeBytes,
		"aspect_ratio": rec.AspectRatio(),
	})
	return rec, true
}
