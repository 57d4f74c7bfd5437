package pixelbot

import (
	"bufio"
	"bytes"
	"embed"
	"io"
	"os"
	"regexp"
	"strings"
)

//go:embed colordata/notpixel.palette
var f embed.FS

// DefaultPalette names the embedded canvas palette.
const DefaultPalette = "notpixel"

var paletteLine = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// Palette is the ordered set of colors the canvas accepts. Order matters:
// nearest-color ties resolve to the earliest entry. Duplicates are
// allowed and harmless.
type Palette []RGB

// Contains reports whether c is one of the palette colors.
func (p Palette) Contains(c RGB) bool {
	return p.Index(c) >= 0
}

// Index returns the position of the first occurrence of c, or -1.
func (p Palette) Index(c RGB) int {
	for i, pc := range p {
		if pc == c {
			return i
		}
	}
	return -1
}

// Hex returns the palette as #RRGGBB strings.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// ParsePaletteLine accepts a line iff, trimmed and upper-cased, it is a
// # followed by exactly six hex digits.
func ParsePaletteLine(line string) (RGB, bool) {
	token := strings.ToUpper(strings.TrimSpace(line))
	if !paletteLine.MatchString(token) {
		return RGB{}, false
	}
	c, err := ParseHex(token)
	if err != nil {
		return RGB{}, false
	}
	return c, true
}

// ReadPalette reads one token per line and silently discards anything
// that is not a valid color. A read error ends the palette where it
// stopped.
func ReadPalette(r io.Reader) Palette {
	var p Palette
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if c, ok := ParsePaletteLine(scanner.Text()); ok {
			p = append(p, c)
		}
	}
	return p
}

// LoadPalette loads a palette from the embedded color data or, failing
// that, the filesystem. An empty path selects the embedded default. A
// missing file yields an empty palette rather than an error; callers
// must treat an empty palette as a hard stop.
func LoadPalette(path string) Palette {
	if path == "" {
		path = DefaultPalette
	}
	// First, try the VFS.
	data, vfsErr := f.ReadFile("colordata/" + path + ".palette")
	if vfsErr != nil {
		// If the VFS fails, try the filesystem.
		var fsErr error
		data, fsErr = os.ReadFile(path)
		if fsErr != nil {
			return nil
		}
	}
	return ReadPalette(bytes.NewReader(data))
}
