package pixelbot

import "fmt"

// CanvasWidth is the fixed width of the shared canvas. Cell ids are
// 1-based along each row, hence the +1 in CellID.
const CanvasWidth = 1024

// Template is the square region of the canvas an account repaints,
// plus the URL of its reference image.
type Template struct {
	ID   string `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Size int    `json:"size"`
	URL  string `json:"url,omitempty"`
}

// Validate checks the template bounds.
func (t Template) Validate() error {
	if t.X < 0 || t.Y < 0 || t.Size <= 0 {
		return fmt.Errorf("%w: x=%d y=%d size=%d", ErrInvalidTemplate, t.X, t.Y, t.Size)
	}
	return nil
}

// Cells is the number of cells the template covers.
func (t Template) Cells() int {
	return t.Size * t.Size
}

// CellID maps a zero-based offset inside the template to a canvas cell.
func CellID(t Template, row, col int) int {
	return (t.Y+row)*CanvasWidth + (t.X + col + 1)
}

// CellPosition is the inverse of CellID: the canvas x and y of a cell.
func CellPosition(id int) (x, y int) {
	return (id - 1) % CanvasWidth, (id - 1) / CanvasWidth
}

// WorkItem is one outstanding paint: a cell and the color it should be.
type WorkItem struct {
	CellID int
	Color  RGB
}

// BuildWorkItems enumerates the template from the bottom-right cell to
// the top-left one, pairing each cell with its target color from the
// row-major colors slice. Colors outside the palette are skipped. The
// caller guarantees len(colors) == t.Cells().
func BuildWorkItems(t Template, colors []RGB, p Palette) []WorkItem {
	items := make([]WorkItem, 0, len(colors))
	for row := t.Size - 1; row >= 0; row-- {
		for col := t.Size - 1; col >= 0; col-- {
			target := colors[row*t.Size+col]
			if !p.Contains(target) {
				continue
			}
			items = append(items, WorkItem{CellID: CellID(t, row, col), Color: target})
		}
	}
	return items
}
