// Package transform decodes origin images, applies a preset policy and
// re-encodes them into an output format.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"

	"github.com/lyzr/cdn/common/models"
)

var (
	ErrUnrecognizedImage = errors.New("image: blob was not a valid image")
	ErrTransformFailed   = errors.New("image: failure to process image")
)

const (
	jpegQuality = 90
	webpQuality = 90
)

type encoder func(w io.Writer, img image.Image) error

// encoders maps the internal format enum onto the codec libraries.
var encoders = map[models.OutputFormat]encoder{
	models.FormatJPEG: func(w io.Writer, img image.Image) error {
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	},
	models.FormatPNG: func(w io.Writer, img image.Image) error {
		return imaging.Encode(w, img, imaging.PNG)
	},
	models.FormatWEBP: func(w io.Writer, img image.Image) error {
		return webp.Encode(w, img, webp.Options{Quality: webpQuality})
	},
}

// Transformer is stateless apart from its limits and safe for concurrent use.
type Transformer struct {
	maxPixels int
}

// New creates a transformer refusing images above maxPixels (0 disables the check)
func New(maxPixels int) *Transformer {
	return &Transformer{maxPixels: maxPixels}
}

// Transform decodes data, applies the preset and encodes to format.
// Identical inputs always produce identical bytes.
func (t *Transformer) Transform(data []byte, preset models.Preset, format models.OutputFormat) (*models.Rendition, error) {
	policy, ok := preset.Policy()
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", ErrTransformFailed, preset)
	}
	encode, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %q", ErrTransformFailed, format)
	}

	img, err := t.decode(data)
	if err != nil {
		return nil, err
	}

	if policy.Fill() {
		img = imaging.Fill(img, policy.Width, policy.Height, imaging.Center, imaging.Gaussian)
	}

	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrTransformFailed, format, err)
	}

	return &models.Rendition{
		Data:     buf.Bytes(),
		MIMEType: format.MIMEType(),
	}, nil
}

func (t *Transformer) decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrUnrecognizedImage, cfg.Width, cfg.Height)
	}
	if t.maxPixels > 0 && cfg.Width*cfg.Height > t.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnrecognizedImage, cfg.Width, cfg.Height, t.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedImage, err)
	}
	return img, nil
}
