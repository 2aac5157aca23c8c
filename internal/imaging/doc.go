// Package imaging provides the raster helpers used by the keypad decoder.
//
// It decodes bitmaps held in memory, normalises them to straight-alpha NRGBA,
// crops sample windows and reports colors. All operations work with standard
// Go image.Image types and use a coordinate system where (0,0) is the
// top-left corner of the image, X increases rightward and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based and relative to the
// image's own top-left corner, even when the image's Bounds() do not start at
// the origin:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Supported Containers
//
// Decode accepts PNG (indexed or truecolor), GIF, JPEG and BMP. The keypad
// images are small indexed PNGs in practice; the other containers are
// registered so that a format change on the portal surfaces as a size or
// pattern mismatch instead of a decode failure.
//
// # Color Representation
//
// Colors are returned in multiple formats:
//   - Hex: 6-character format "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - RGBA: 8-bit non-premultiplied components with alpha (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Thread Safety
//
// Operations are stateless and can be called concurrently on different
// images.
package imaging
