package pixelbot

import (
	"fmt"
	"image"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wbrown/pixelbot/imageutil"
)

const (
	legendRowHeight = 18
	legendSwatch    = 12
	legendFontSize  = 12
	legendWidth     = 180
)

var (
	legendFontOnce sync.Once
	legendFont     *truetype.Font
	legendFontErr  error
)

func loadLegendFont() (*truetype.Font, error) {
	legendFontOnce.Do(func() {
		legendFont, legendFontErr = freetype.ParseFont(goregular.TTF)
	})
	return legendFont, legendFontErr
}

// RenderColors draws a row-major color slice width cells wide as an
// image, each cell scaled to scale x scale pixels.
func RenderColors(colors []RGB, width, scale int) (*imageutil.RGBAImage, error) {
	if width <= 0 || len(colors) == 0 || len(colors)%width != 0 {
		return nil, fmt.Errorf("%w: %d pixels do not fill rows of %d", ErrSizeMismatch, len(colors), width)
	}
	if scale < 1 {
		scale = 1
	}
	height := len(colors) / width
	img := imageutil.NewRGBAImage(width, height)
	for i, c := range colors {
		img.SetRGB(i%width, i/width, imageutil.RGB{R: c.R, G: c.G, B: c.B})
	}
	if scale == 1 {
		return img, nil
	}
	return imageutil.Resize(img, width*scale, height*scale, imageutil.InterpolationNearest), nil
}

// RenderPreview draws the quantized colors next to a legend of the
// colors used and their share of the image.
func RenderPreview(colors []RGB, width, scale int) (*imageutil.RGBAImage, error) {
	body, err := RenderColors(colors, width, scale)
	if err != nil {
		return nil, err
	}
	hist := Histogram(colors)

	outW := body.Width() + legendWidth
	outH := max(body.Height(), len(hist)*legendRowHeight+legendRowHeight/2)
	out := imageutil.NewRGBAImage(outW, outH)
	out.FillRect(out.Bounds(), imageutil.RGB{R: 255, G: 255, B: 255})
	for y := 0; y < body.Height(); y++ {
		for x := 0; x < body.Width(); x++ {
			out.SetRGB(x, y, body.GetRGB(x, y))
		}
	}

	ttf, err := loadLegendFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse legend font: %w", err)
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(ttf)
	ctx.SetFontSize(legendFontSize)
	ctx.SetClip(out.Bounds())
	ctx.SetDst(out.RGBA)
	ctx.SetSrc(image.Black)
	ctx.SetHinting(font.HintingFull)

	left := body.Width() + 8
	for i, entry := range hist {
		top := i*legendRowHeight + 4
		c := entry.Color
		out.FillRect(image.Rect(left, top, left+legendSwatch, top+legendSwatch),
			imageutil.RGB{R: c.R, G: c.G, B: c.B})
		label := fmt.Sprintf("%s %5.1f%%", c.Hex(), entry.Percent)
		if _, err := ctx.DrawString(label, freetype.Pt(left+legendSwatch+6, top+legendSwatch)); err != nil {
			return nil, fmt.Errorf("failed to draw legend: %w", err)
		}
	}
	return out, nil
}

// SavePreview renders a preview and writes it as PNG.
func SavePreview(path string, colors []RGB, width, scale int) error {
	img, err := RenderPreview(colors, width, scale)
	if err != nil {
		return err
	}
	return imageutil.SavePNG(img.RGBA, path)
}
