package imagestore

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds width × height of a decoded image (about 256 MiB as RGBA).
const DefaultMaxPixels = 64 << 20

// Decoder turns fetched bytes into an image.
type Decoder func(data []byte) (image.Image, error)

// TooManyPixelsError reports an image whose header declares more pixels than allowed.
type TooManyPixelsError struct {
	Width, Height int
	Max           int64
}

func (e *TooManyPixelsError) Error() string {
	return fmt.Sprintf("imagestore: image is %dx%d, more than %d pixels", e.Width, e.Height, e.Max)
}

// DecodeImage decodes any registered format (png, jpeg, gif, bmp, tiff, webp)
// with DefaultMaxPixels.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := DecodeLimited(data, DefaultMaxPixels)
	return img, err
}

// NewDecoder returns a Decoder that rejects images larger than maxPixels
// (0 = DefaultMaxPixels).
func NewDecoder(maxPixels int64) Decoder {
	return func(data []byte) (image.Image, error) {
		img, _, err := DecodeLimited(data, maxPixels)
		return img, err
	}
}

// DecodeLimited reads the image header first and only decodes pixel data when
// width × height is at most maxPixels (0 = DefaultMaxPixels). It also returns
// the format name.
func DecodeLimited(data []byte, maxPixels int64) (image.Image, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width < 0 || cfg.Height < 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, format, &TooManyPixelsError{Width: cfg.Width, Height: cfg.Height, Max: maxPixels}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	return img, format, err
}
