package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

// CoverSet holds the processed variants of a book cover.
// Both variants are re-encoded as JPEG so stored keys stay predictable.
type CoverSet struct {
	Cover       []byte
	Thumb       []byte
	ContentType string
	Width       int
	Height      int
}

// Config for cover processing
type Config struct {
	MaxSize   int // bounding box for the display cover (default 1600)
	ThumbSize int // bounding box for the thumbnail (default 400)
	Quality   int // JPEG quality 1-100 (default 85)
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		MaxSize:   1600,
		ThumbSize: 400,
		Quality:   85,
	}
}

// Processor produces display and thumbnail variants of uploaded covers
type Processor struct {
	config Config
}

// NewProcessor creates a cover processor
func NewProcessor(config Config) *Processor {
	return &Processor{config: config}
}

// ProcessCover decodes an upload and produces the cover and thumbnail
// variants. Covers are fitted, never cropped — book covers lose meaning
// when trimmed.
func (p *Processor) ProcessCover(reader io.Reader) (*CoverSet, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	cover := img
	if img.Bounds().Dx() > p.config.MaxSize || img.Bounds().Dy() > p.config.MaxSize {
		cover = imaging.Fit(img, p.config.MaxSize, p.config.MaxSize, imaging.Lanczos)
	}

	coverBytes, err := p.encodeJPEG(cover)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}

	thumb := imaging.Fit(img, p.config.ThumbSize, p.config.ThumbSize, imaging.Lanczos)
	thumbBytes, err := p.encodeJPEG(thumb)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &CoverSet{
		Cover:       coverBytes,
		Thumb:       thumbBytes,
		ContentType: "image/jpeg",
		Width:       cover.Bounds().Dx(),
		Height:      cover.Bounds().Dy(),
	}, nil
}

func (p *Processor) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
