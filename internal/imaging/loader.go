package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // Register BMP format decoder
)

// Decode decodes a raster image held in memory.
//
// Parameters:
//   - data: Raw bytes as served by the portal. Supported containers are PNG,
//     GIF, JPEG and BMP; the container is sniffed from the data, not from any
//     file name or Content-Type.
//
// Returns:
//   - image.Image: The decoded image. The concrete type depends on the container
//     and color model (e.g., *image.Paletted for indexed PNG/GIF, *image.NRGBA).
//   - string: The format name reported by the registered decoder ("png", "gif", ...).
//   - error: Non-nil if the data is empty or no registered decoder accepts it.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("failed to decode image: empty payload")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Normalize returns img as straight-alpha 8-bit NRGBA with bounds starting at (0,0).
//
// Keypad bitmaps arrive as paletted or RGBA images depending on how the portal
// encodes them on a given day. Colour analysis reads channels from the
// returned Pix slice directly.
// An *image.NRGBA whose bounds already start at the origin is returned unchanged.
func Normalize(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// ImageInfo contains metadata about a decoded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name: "png", "jpeg", "gif", "bmp", or "unknown".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// Paletted is true for indexed-color images.
	Paletted bool `json:"paletted"`

	// SizeBytes is the size of the encoded payload in bytes.
	SizeBytes int `json:"size_bytes"`
}

// Describe returns metadata for an image decoded from a payload of sizeBytes bytes.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func Describe(img image.Image, format string, sizeBytes int) *ImageInfo {
	if format == "" {
		format = "unknown"
	}

	hasAlpha := false
	paletted := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	case *image.Paletted:
		paletted = true
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		Paletted:   paletted,
		SizeBytes:  sizeBytes,
	}
}
