package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Snapshot is the receipt copy of a product image.
type Snapshot struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

type Config struct {
	MaxSide int // longest edge of the snapshot (default 800)
	Quality int // JPEG quality 1-100 (default 85)
}

func DefaultConfig() Config {
	return Config{MaxSide: 800, Quality: 85}
}

// MaxFileSize bounds the source image read by the processor (10MB).
const MaxFileSize int64 = 10 * 1024 * 1024

// Processor turns product images into receipt snapshots.
type Processor struct {
	config Config
}

func NewProcessor(config Config) *Processor {
	def := DefaultConfig()
	if config.MaxSide <= 0 {
		config.MaxSide = def.MaxSide
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = def.Quality
	}
	return &Processor{config: config}
}

// Snapshot decodes any supported image, fits it into MaxSide and re-encodes
// it as JPEG. EXIF orientation is applied so receipts render upright.
func (p *Processor) Snapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, fmt.Errorf("image larger than %d bytes", MaxFileSize)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := img
	if max(width(img), height(img)) > p.config.MaxSide {
		out = imaging.Fit(img, p.config.MaxSide, p.config.MaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(p.config.Quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return &Snapshot{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       width(out),
		Height:      height(out),
	}, nil
}

func width(i image.Image) int  { return i.Bounds().Dx() }
func height(i image.Image) int { return i.Bounds().Dy() }
