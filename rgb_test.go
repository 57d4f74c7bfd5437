package pixelbot

import (
	"image/color"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#000000", RGB{0, 0, 0}, false},
		{"#FFFFFF", RGB{255, 255, 255}, false},
		{"#e46e6e", RGB{0xE4, 0x6E, 0x6E}, false},
		{"E46E6E", RGB{}, true},
		{"#E46E6", RGB{}, true},
		{"#GGGGGG", RGB{}, true},
		{"", RGB{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := RGB{R: 0x0A, G: 0xB0, B: 0xFF}
	if c.Hex() != "#0AB0FF" {
		t.Errorf("Expected #0AB0FF, got %s", c.Hex())
	}
	back, err := ParseHex(c.Hex())
	if err != nil || back != c {
		t.Errorf("Round trip failed: %v, %v", back, err)
	}
	if rgbFromUint32(0x0AB0FF) != c {
		t.Errorf("Expected %v from 0x0AB0FF, got %v", c, rgbFromUint32(0x0AB0FF))
	}
}

func TestManhattanDistance(t *testing.T) {
	tests := []struct {
		a, b RGB
		want int
	}{
		{RGB{0, 0, 0}, RGB{0, 0, 0}, 0},
		{RGB{0, 0, 0}, RGB{255, 255, 255}, 765},
		{RGB{100, 100, 100}, RGB{0, 0, 0}, 300},
		{RGB{100, 100, 100}, RGB{255, 255, 255}, 465},
		{RGB{10, 200, 30}, RGB{20, 190, 30}, 20},
	}
	for _, tt := range tests {
		if got := ManhattanDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("ManhattanDistance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := ManhattanDistance(tt.b, tt.a); got != tt.want {
			t.Errorf("ManhattanDistance should be symmetric for %v, %v", tt.a, tt.b)
		}
	}
}

func TestRGBFromColorDropsAlpha(t *testing.T) {
	got := RGBFromColor(color.NRGBA{R: 200, G: 10, B: 20, A: 64})
	if got != (RGB{200, 10, 20}) {
		t.Errorf("Expected straight color, got %v", got)
	}
}
