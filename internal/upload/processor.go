// Package upload validates chat images, downsizes oversized ones and stores
// them, returning the URL clients put into send-message.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
	"github.com/aviator-hackers/backend-avapk/pkg/storage"
)

var (
	ErrTooLarge = errors.New("image exceeds upload limit")
	ErrNotImage = errors.New("not a supported image")
)

// formats maps decoder names to stored extension and content type.
var formats = map[string]struct {
	ext         string
	contentType string
	encode      imaging.Format
}{
	"jpeg": {".jpg", "image/jpeg", imaging.JPEG},
	"png":  {".png", "image/png", imaging.PNG},
	"gif":  {".gif", "image/gif", imaging.GIF},
	"bmp":  {".bmp", "image/bmp", imaging.BMP},
	"tiff": {".tiff", "image/tiff", imaging.TIFF},
}

const (
	jpegQuality = 85

	defaultMaxPixels = 40_000_000
)

type Processor struct {
	store        storage.Storage
	maxBytes     int64
	maxDimension int
	maxPixels    int64
	keyPrefix    string
}

func NewProcessor(store storage.Storage, cfg config.UploadConfig) *Processor {
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = defaultMaxPixels
	}
	return &Processor{
		store:        store,
		maxBytes:     cfg.MaxBytes,
		maxDimension: cfg.MaxDimension,
		maxPixels:    cfg.MaxPixels,
		keyPrefix:    cfg.KeyPrefix,
	}
}

// MaxBytes is the largest accepted upload.
func (p *Processor) MaxBytes() int64 {
	return p.maxBytes
}

// Save reads one image from r, fits it within the configured dimension and
// stores it under a fresh key. It returns the public URL of the stored object.
func (p *Processor) Save(ctx context.Context, r io.Reader) (string, error) {
	l := log.Ctx(ctx)

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return "", ErrTooLarge
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	format, ok := formats[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotImage, name)
	}
	// Checked from the header alone, before any pixel is decoded.
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return "", fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	if p.maxDimension > 0 && (cfg.Width > p.maxDimension || cfg.Height > p.maxDimension) {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNotImage, err)
		}
		resized := imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, format.encode, imaging.JPEGQuality(jpegQuality)); err != nil {
			return "", fmt.Errorf("encode resized image: %w", err)
		}
		l.Debug().
			Int("width", cfg.Width).
			Int("height", cfg.Height).
			Int("max_dimension", p.maxDimension).
			Msg("downsized upload")
		data = buf.Bytes()
	}

	key := path.Join(p.keyPrefix, uuid.New().String()+format.ext)
	if err := p.store.Write(ctx, key, bytes.NewReader(data), int64(len(data)), format.contentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	url, err := p.store.URL(ctx, key)
	if err != nil {
		if delErr := p.store.Delete(ctx, key); delErr != nil {
			l.Warn().Err(delErr).Str("key", key).Msg("failed to remove unreachable upload")
		}
		return "", fmt.Errorf("resolve image url: %w", err)
	}

	l.Info().Str("key", key).Int("bytes", len(data)).Msg("stored chat image")
	return url, nil
}
