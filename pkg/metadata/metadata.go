package metadata

import (
	"fmt"
	"image"
	"os"

	// Registered decoders for dimension extraction
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"imgharvest/pkg/errors"
)

// TableName is the relational table receiving one row per download
const TableName = "image_metadata"

// Record is one row of the image_metadata table. Width and Height are nil
// when the file could not be decoded.
type Record struct {
	Keyword   string `json:"keyword"`
	URL       string `json:"url"`
	LocalPath string `json:"local_path"`
	Width     *int   `json:"width"`
	Height    *int   `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// Dimensions fully decodes the image at path and returns its size.
// A truncated or corrupt file is an error even when its header is intact.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, 0, errors.New(errors.ErrorTypeDecode, 0, "failed to decode image: %v", err)
	}

	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// FileSize returns the size of the file at path
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

// AspectRatio returns the aspect ratio as a string
func (r Record) AspectRatio() string {
	if r.Width == nil || r.Height == nil || *r.Height == 0 {
		return "unknown"
	}

	ratio := float64(*r.Width) / float64(*r.Height)

	// Common aspect ratios
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}
