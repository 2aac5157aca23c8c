package captcha

import (
	"image"

	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/imaging"
)

// Keypad image geometry. Anything smaller than MinWidth x MinHeight means the
// portal changed its keypad rendering.
const (
	MinWidth  = 24
	MinHeight = 28

	// InkThreshold: a pixel is ink when green+blue is below it, i.e. it is
	// red enough against the white keypad background.
	InkThreshold = 450
)

// SampleWindow is the part of a keypad image the glyph is drawn in:
// columns 15-22 and rows 12-26, inclusive.
var SampleWindow = imaging.Region{X1: 15, Y1: 12, X2: 15 + SampleColumns, Y2: 12 + SampleRows}

// IsInk applies the ink threshold to 8-bit green and blue channels.
func IsInk(green, blue uint8) bool {
	return int(green)+int(blue) < InkThreshold
}

// Sample extracts the bit pattern of a decoded keypad image.
//
// Images smaller than MinWidth x MinHeight fail with MalformedCaptchaImage.
// Channels are compared in straight (non-premultiplied) alpha.
func Sample(img image.Image) (BitPattern, error) {
	var p BitPattern

	b := img.Bounds()
	if b.Dx() < MinWidth || b.Dy() < MinHeight {
		return p, apperr.Newf(apperr.MalformedCaptchaImage, "keypad image is %dx%d, want at least %dx%d",
			b.Dx(), b.Dy(), MinWidth, MinHeight)
	}

	window, err := imaging.Crop(img, SampleWindow)
	if err != nil {
		return p, apperr.Wrap(err, apperr.MalformedCaptchaImage, "crop sample window")
	}

	i := 0
	for x := 0; x < SampleColumns; x++ {
		for y := 0; y < SampleRows; y++ {
			c := window.NRGBAAt(x, y)
			if IsInk(c.G, c.B) {
				p.Set(i)
			}
			i++
		}
	}
	return p, nil
}
