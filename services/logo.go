package services

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedLogo is returned for logo data that is not a decodable image.
var ErrUnsupportedLogo = errors.New("unsupported logo format")

const maxLogoPixels = 400

var logoMimeTypes = []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff"}

// PrepareLogo normalises logo bytes for embedding: the image is decoded,
// shrunk to fit a 400x400 box and re-encoded as PNG.
func PrepareLogo(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedLogo)
	}

	mtype := mimetype.Detect(data)
	if !isOneOf(mtype, logoMimeTypes) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLogo, mtype.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedLogo, err)
	}

	b := img.Bounds()
	if b.Dx() > maxLogoPixels || b.Dy() > maxLogoPixels {
		img = imaging.Fit(img, maxLogoPixels, maxLogoPixels, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding logo: %w", err)
	}
	return buf.Bytes(), nil
}

func isOneOf(m *mimetype.MIME, types []string) bool {
	for _, t := range types {
		if m.Is(t) {
			return true
		}
	}
	return false
}
