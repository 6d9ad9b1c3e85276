package universe

import (
	"sort"
	"strings"
)

const (
	DeadFiller = '.'
	LiveFiller = '#'
)

//Snapshot is the read-only state handed to the viewers
type Snapshot struct {
	Epoch        int
	LiveCells    int
	TrackedCells int
	Cells        Cells
}

//Live returns the live cells sorted by row, then column
func (s Snapshot) Live() []Coord {
	live := make([]Coord, 0, s.LiveCells)
	for k, status := range s.Cells {
		if status == Live {
			live = append(live, k.Coord())
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].Y != live[j].Y {
			return live[i].Y < live[j].Y
		}
		return live[i].X < live[j].X
	})
	return live
}

//Grid fills a width x height grid with the live cells of the rectangle whose top left corner is x, y
func (s Snapshot) Grid(x int, y int, width int, height int) [][]byte {
	if width <= 0 || height <= 0 {
		return [][]byte{}
	}
	grid := make([][]byte, height)
	b := make([]byte, width*height)
	for i := range b {
		b[i] = DeadFiller
	}
	for i := range grid {
		start := width * i
		grid[i] = b[start : start+width : start+width]
	}
	for k, status := range s.Cells {
		if status != Live {
			continue
		}
		c := k.Coord()
		col, row := c.X-x, c.Y-y
		if 0 <= row && row < height && 0 <= col && col < width {
			grid[row][col] = LiveFiller
		}
	}
	return grid
}

//GridString renders the grid, one line per row
func GridString(grid [][]byte) string {
	var b strings.Builder
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}
