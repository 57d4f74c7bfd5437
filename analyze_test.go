package pixelbot

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/wbrown/pixelbot/imageutil"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func blackWhiteAnalyzer() *Analyzer {
	return NewAnalyzer(NewQuantizer(Palette{MustParseHex("#000000"), MustParseHex("#FFFFFF")}, nil))
}

func TestAnalyzeRowMajor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	// Row 0: white, black, black. Row 1: black, black, white.
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Black)
	img.Set(2, 0, color.Black)
	img.Set(0, 1, color.Black)
	img.Set(1, 1, color.Black)
	img.Set(2, 1, color.White)

	colors, err := blackWhiteAnalyzer().Analyze(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	w, b := MustParseHex("#FFFFFF"), MustParseHex("#000000")
	want := []RGB{w, b, b, b, b, w}
	if len(colors) != len(want) {
		t.Fatalf("Expected %d colors, got %d", len(want), len(colors))
	}
	for i := range want {
		if colors[i] != want[i] {
			t.Errorf("Pixel %d: expected %s, got %s", i, want[i].Hex(), colors[i].Hex())
		}
	}
}

func TestAnalyzeQuantizes(t *testing.T) {
	img := imageutil.CreateSolidImage(2, 2, imageutil.RGB{R: 100, G: 100, B: 100})
	colors, err := blackWhiteAnalyzer().Analyze(encodePNG(t, img.RGBA))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for i, c := range colors {
		if c.Hex() != "#000000" {
			t.Errorf("Pixel %d: (100,100,100) should quantize to #000000, got %s", i, c.Hex())
		}
	}
}

func TestAnalyzeIgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	// Nearly transparent white must still read as white.
	img.SetNRGBA(0, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 5})

	colors, err := blackWhiteAnalyzer().Analyze(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if colors[0].Hex() != "#FFFFFF" {
		t.Errorf("Expected #FFFFFF, got %s", colors[0].Hex())
	}
}

func TestAnalyzeIndexedGIF(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	img := imageutil.CreatePalettedImage(2, 1, pal, []uint8{1, 0})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode GIF: %v", err)
	}

	colors, err := blackWhiteAnalyzer().Analyze(buf.Bytes())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(colors) != 2 || colors[0].Hex() != "#FFFFFF" || colors[1].Hex() != "#000000" {
		t.Errorf("Unexpected colors %v", colors)
	}
}

func TestAnalyzeJPEG(t *testing.T) {
	img := imageutil.CreateSolidImage(8, 8, imageutil.RGB{R: 240, G: 240, B: 240})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img.RGBA, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
	colors, err := blackWhiteAnalyzer().Analyze(buf.Bytes())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(colors) != 64 {
		t.Fatalf("Expected 64 colors, got %d", len(colors))
	}
	for _, c := range colors {
		if c.Hex() != "#FFFFFF" {
			t.Fatalf("Expected light JPEG to quantize to white, got %s", c.Hex())
		}
	}
}

func TestAnalyzeDecodeError(t *testing.T) {
	_, err := blackWhiteAnalyzer().Analyze([]byte("definitely not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image_test.png")
	img := imageutil.CreateCheckerboardImage(4, 4, 2)
	if err := os.WriteFile(path, encodePNG(t, img.RGBA), 0o644); err != nil {
		t.Fatal(err)
	}

	colors, err := blackWhiteAnalyzer().AnalyzeFile(path)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(colors) != 16 {
		t.Errorf("Expected 16 colors, got %d", len(colors))
	}

	if _, err := blackWhiteAnalyzer().AnalyzeFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestAnalyzeTransparentGIFReadsBlack(t *testing.T) {
	// 1x1 GIF89a, global palette {red, white}, index 0 marked transparent.
	data := []byte{
		'G', 'I', 'F', '8', '9', 'a',
		0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
		0xFF, 0x00, 0x00, 0xFF, 0xFF, 0xFF,
		0x21, 0xF9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
		0x02, 0x02, 0x44, 0x01, 0x00,
		0x3B,
	}
	analyzer := NewAnalyzer(NewQuantizer(Palette{MustParseHex("#FF0000"), MustParseHex("#000000")}, nil))

	colors, err := analyzer.Analyze(data)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	// image/gif drops the transparent entry's color before we see it.
	if len(colors) != 1 || colors[0].Hex() != "#000000" {
		t.Errorf("Expected transparent GIF pixel to read as #000000, got %v", colors)
	}
}
