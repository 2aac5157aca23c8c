package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/imaging"
)

// windowScale magnifies saved sample windows so single pixels are visible.
const windowScale = 16

// inspection is the report for one keypad image file.
type inspection struct {
	File      string                        `json:"file"`
	Info      *imaging.ImageInfo            `json:"info,omitempty"`
	Digit     string                        `json:"digit,omitempty"`
	Distance  int                           `json:"distance"`
	Distances []int                         `json:"distances,omitempty"`
	Pattern   string                        `json:"pattern,omitempty"`
	Grid      []string                      `json:"grid,omitempty"`
	Colors    *imaging.DominantColorsResult `json:"window_colors,omitempty"`
	Ink       *imaging.ColorResult          `json:"ink,omitempty"`
	Window    string                        `json:"window_file,omitempty"`
	Error     string                        `json:"error,omitempty"`
}

// runInspect decodes keypad images saved to disk and prints what the
// decoder sees in each of them.
func runInspect(args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	outDir := fs.String("o", "", "directory to write magnified sample windows to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("inspect needs at least one image file")
	}

	reports := make([]inspection, 0, fs.NArg())
	for _, path := range fs.Args() {
		r := inspectFile(path, *outDir)
		if r.Error != "" {
			log.Warn("keypad image not decoded", "file", path, "error", r.Error)
		}
		reports = append(reports, r)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func inspectFile(path, outDir string) inspection {
	r := inspection{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	img, format, err := imaging.Decode(data)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Info = imaging.Describe(img, format, len(data))

	pattern, err := captcha.Sample(img)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	digit, distance := captcha.Reference().Nearest(pattern)
	dists := captcha.Reference().Distances(pattern)

	r.Digit = digit.String()
	r.Distance = distance
	r.Distances = dists[:]
	r.Pattern = pattern.String()
	r.Grid = strings.Split(strings.TrimSuffix(pattern.Grid(), "\n"), "\n")

	for i := 0; i < captcha.PatternBits; i++ {
		if pattern.Bit(i) {
			x := captcha.SampleWindow.X1 + i/captcha.SampleRows
			y := captcha.SampleWindow.Y1 + i%captcha.SampleRows
			if c, err := imaging.SampleColor(img, x, y); err == nil {
				r.Ink = c
			}
			break
		}
	}

	window := captcha.SampleWindow
	if colors, err := imaging.DominantColors(img, 3, &window); err == nil {
		r.Colors = colors
	}

	if outDir != "" {
		file, err := saveWindow(img, path, outDir)
		if err != nil {
			r.Error = err.Error()
			return r
		}
		r.Window = file
	}
	return r
}

// saveWindow writes the sample window of img, magnified, as a PNG in outDir.
func saveWindow(img image.Image, path, outDir string) (string, error) {
	crop, err := imaging.Crop(img, captcha.SampleWindow)
	if err != nil {
		return "", err
	}
	big := transform.Resize(crop, crop.Bounds().Dx()*windowScale, crop.Bounds().Dy()*windowScale, transform.NearestNeighbor)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_window.png"
	file := filepath.Join(outDir, name)
	if err := imgio.Save(file, big, imgio.PNGEncoder()); err != nil {
		return "", fmt.Errorf("failed to save sample window: %w", err)
	}
	return file, nil
}
