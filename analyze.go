package pixelbot

import (
	"fmt"
	"image"
	"os"

	"github.com/wbrown/pixelbot/imageutil"
)

// Analyzer turns template images into palette colors.
type Analyzer struct {
	quantizer *Quantizer
}

// NewAnalyzer creates an analyzer that quantizes through q.
func NewAnalyzer(q *Quantizer) *Analyzer {
	return &Analyzer{quantizer: q}
}

// Analyze decodes data and returns one quantized color per pixel, row 0
// first and column 0 first within a row. Alpha is dropped and indexed
// images are expanded to RGB before quantizing. The caller checks the
// length against the template size.
//
// GIF is the exception to straight alpha: image/gif replaces the
// transparent palette entry with color.RGBA{}, so transparent GIF
// pixels read as black. Templates are served as PNG.
func (a *Analyzer) Analyze(data []byte) ([]RGB, error) {
	img, _, err := imageutil.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return a.AnalyzeImage(img), nil
}

// AnalyzeFile reads path and analyzes its contents.
func (a *Analyzer) AnalyzeFile(path string) ([]RGB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading image: %w", err)
	}
	return a.Analyze(data)
}

// AnalyzeImage quantizes an already decoded image.
func (a *Analyzer) AnalyzeImage(img image.Image) []RGB {
	bounds := img.Bounds()
	colors := make([]RGB, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			colors = append(colors, a.quantizer.Nearest(RGBFromColor(img.At(x, y))))
		}
	}
	return colors
}
