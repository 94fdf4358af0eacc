package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// maxDimension caps the longest side of a screenshot before OCR. Payment-app
// screenshots come from phones and rarely exceed this; anything larger just
// slows Tesseract down without improving recognition.
const maxDimension = 2000

// Preprocess normalizes a raw screenshot for recognition: bounded resize
// (never upscaled), grayscale, a moderate brightness/contrast lift tuned for
// dark-on-light payment-app text, and a sharpening pass. Returns PNG bytes.
// Stateless and safe for concurrent use.
func Preprocess(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPreprocessingFailed, err)
	}

	img := imaging.Clone(src)
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w > maxDimension || h > maxDimension {
		if w >= h {
			img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
		}
	}

	img = imaging.AdjustSaturation(img, -30)
	img = imaging.Grayscale(img)
	img = imaging.AdjustBrightness(img, 8)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 0.8)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrPreprocessingFailed, err)
	}
	return buf.Bytes(), nil
}
