package pixelbot

import (
	"sync"
	"testing"
)

func TestNearestBlackWhite(t *testing.T) {
	p := Palette{MustParseHex("#000000"), MustParseHex("#FFFFFF")}
	if got := Nearest(RGB{100, 100, 100}, p); got != p[0] {
		t.Errorf("Expected #000000, got %s", got.Hex())
	}
	if got := Nearest(RGB{200, 200, 200}, p); got != p[1] {
		t.Errorf("Expected #FFFFFF, got %s", got.Hex())
	}
}

func TestNearestTieGoesToFirst(t *testing.T) {
	// (10,10,10) is 30 away from both entries.
	a := RGB{0, 0, 0}
	b := RGB{20, 20, 20}
	if got := Nearest(RGB{10, 10, 10}, Palette{a, b}); got != a {
		t.Errorf("Expected first entry %v on tie, got %v", a, got)
	}
	if got := Nearest(RGB{10, 10, 10}, Palette{b, a}); got != b {
		t.Errorf("Expected first entry %v on tie, got %v", b, got)
	}
}

func TestNearestIsMinimum(t *testing.T) {
	p := LoadPalette("")
	for r := 0; r < 256; r += 37 {
		for g := 0; g < 256; g += 41 {
			for b := 0; b < 256; b += 43 {
				c := RGB{uint8(r), uint8(g), uint8(b)}
				got := Nearest(c, p)
				gotDist := ManhattanDistance(c, got)
				for i, candidate := range p {
					d := ManhattanDistance(c, candidate)
					if d < gotDist {
						t.Fatalf("%v: %v at %d beats %v at %d", c, candidate, d, got, gotDist)
					}
					if d == gotDist && i < p.Index(got) {
						t.Fatalf("%v: tie should pick earlier %v over %v", c, candidate, got)
					}
				}
			}
		}
	}
}

func TestNearestEmptyPalette(t *testing.T) {
	c := RGB{1, 2, 3}
	if got := Nearest(c, nil); got != c {
		t.Errorf("Expected input back for empty palette, got %v", got)
	}
}

func TestQuantizerMatchesNearest(t *testing.T) {
	t.Parallel()

	p := LoadPalette("")
	q := NewQuantizer(p, nil)
	if q.method.Name() != "manhattan" {
		t.Errorf("Expected manhattan default, got %s", q.method.Name())
	}

	colors := []RGB{{12, 200, 99}, {255, 0, 0}, {12, 200, 99}, {1, 1, 1}}
	for _, c := range colors {
		if got, want := q.Nearest(c), Nearest(c, p); got != want {
			t.Errorf("Quantizer.Nearest(%v) = %v, want %v", c, got, want)
		}
	}
	hits, misses, _ := q.CacheStats()
	if hits != 1 || misses != 3 {
		t.Errorf("Expected 1 hit and 3 misses, got %d and %d", hits, misses)
	}
}

func TestQuantizerConcurrent(t *testing.T) {
	t.Parallel()

	p := LoadPalette("")
	q := NewQuantizer(p, RedmeanMethod{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for v := 0; v < 256; v += 5 {
				c := RGB{uint8(v), uint8(seed * 30), uint8(255 - v)}
				if !p.Contains(q.Nearest(c)) {
					t.Errorf("Quantized color %v not in palette", c)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestDistanceMethods(t *testing.T) {
	methods := []ColorDistanceMethod{ManhattanMethod{}, RedmeanMethod{}, LABMethod{}}
	a := RGB{10, 20, 30}
	b := RGB{200, 180, 20}
	for _, m := range methods {
		if d := m.Distance(a, a); d > 1e-9 {
			t.Errorf("%s: identical colors should measure 0, got %f", m.Name(), d)
		}
		if d := m.Distance(a, b); d <= 0 {
			t.Errorf("%s: distinct colors should measure > 0, got %f", m.Name(), d)
		}
	}
}

func TestDistanceMethodByName(t *testing.T) {
	for _, name := range []string{"", "manhattan", "Redmean", " lab "} {
		if _, err := DistanceMethodByName(name); err != nil {
			t.Errorf("DistanceMethodByName(%q) failed: %v", name, err)
		}
	}
	if _, err := DistanceMethodByName("euclid"); err == nil {
		t.Error("Expected error for unknown method")
	}
}
