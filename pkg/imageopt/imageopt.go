// Package imageopt shrinks photos before upload.
package imageopt

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/vmcmoto/motoportal/pkg/logger"
)

const (
	DefaultMaxDim  = 1920
	DefaultQuality = 82
)

// Options controls Optimize. Zero fields take the defaults.
type Options struct {
	MaxDim  int // longest side in pixels
	Quality int // JPEG quality 1-100
}

func (o Options) withDefaults() Options {
	if o.MaxDim <= 0 {
		o.MaxDim = DefaultMaxDim
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Optimize decodes data (JPEG, PNG, GIF, TIFF or BMP), applies the EXIF
// orientation, fits it inside MaxDim x MaxDim keeping the aspect ratio and
// re-encodes it as JPEG. Images already small enough are only re-encoded.
func Optimize(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imageopt: decode: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > opts.MaxDim || b.Dy() > opts.MaxDim {
		img = imaging.Fit(img, opts.MaxDim, opts.MaxDim, imaging.Lanczos)
		logger.Debug("imageopt: resized", "from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			"to", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("imageopt: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// JPEGName swaps the extension of name for .jpg.
func JPEGName(name string) string {
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}
