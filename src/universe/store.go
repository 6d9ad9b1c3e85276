package universe

import "maps"

//Cells maps the tracked cells to their status
//absent cells are dead
type Cells map[Key]Cell

//Store is the sparse cell storage
//it tracks the live cells and every neighbor of a live cell, so births can be detected
//without scanning the whole plane
type Store struct {
	cells     Cells
	liveCells int
	origin    Coord
	bound     int
}

//NewStore creates an empty store
//bound > 0 prevents cells from living farther than bound (Chebyshev distance) from origin
func NewStore(origin Coord, bound int) *Store {
	return &Store{cells: Cells{}, origin: origin, bound: bound}
}

//CellStatus returns the status of the cell in cells, which may be a snapshot and not the store itself
func CellStatus(cells Cells, k Key) Cell {
	return cells[k]
}

//CountLive counts how many of keys are live in cells
func CountLive(cells Cells, keys []Key) int {
	n := 0
	for _, k := range keys {
		if cells[k] {
			n++
		}
	}
	return n
}

//InBound reports whether the cell is allowed to live
func (s *Store) InBound(c Coord) bool {
	if s.bound <= 0 {
		return true
	}
	return abs(c.X-s.origin.X) <= s.bound && abs(c.Y-s.origin.Y) <= s.bound
}

//Activate makes the cell live and starts tracking its neighbors
//returns false and leaves the store untouched when the cell is out of bound
func (s *Store) Activate(k Key, neighbors []Key) bool {
	if s.bound > 0 && !s.InBound(k.Coord()) {
		return false
	}
	if !s.cells[k] {
		s.liveCells++
	}
	s.cells[k] = Live
	for _, n := range neighbors {
		if _, ok := s.cells[n]; !ok {
			s.cells[n] = Dead
		}
	}
	return true
}

//SetDead kills the cell but keeps tracking it
func (s *Store) SetDead(k Key) {
	if s.cells[k] {
		s.liveCells--
		s.cells[k] = Dead
	}
}

//Delete stops tracking the cell
func (s *Store) Delete(k Key) {
	if s.cells[k] {
		s.liveCells--
	}
	delete(s.cells, k)
}

//Get returns the status of the cell in the store
func (s *Store) Get(k Key) Cell {
	return s.cells[k]
}

//Tracked reports whether the cell has an entry in the store
func (s *Store) Tracked(k Key) bool {
	_, ok := s.cells[k]
	return ok
}

//Size returns the number of tracked cells
func (s *Store) Size() int {
	return len(s.cells)
}

//LiveCells returns the number of live cells
func (s *Store) LiveCells() int {
	return s.liveCells
}

//Snapshot returns a copy of the tracked cells
func (s *Store) Snapshot() Cells {
	return maps.Clone(s.cells)
}

//Reset forgets every cell
func (s *Store) Reset() {
	s.cells = Cells{}
	s.liveCells = 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
