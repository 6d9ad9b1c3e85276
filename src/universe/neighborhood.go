package universe

import (
	"errors"
	"fmt"
	"sort"
)

//ErrUnknownNeighborhood is returned by LookupNeighborhood for unregistered names
var ErrUnknownNeighborhood = errors.New("unknown neighborhood")

//Neighborhood maps a cell to the ordered list of the cells considered adjacent
//the order has no meaning for the simulation but must be stable
type Neighborhood interface {
	Neighbors(c Coord) []Coord
}

//NeighborhoodFunc adapts a plain function to the Neighborhood interface
type NeighborhoodFunc func(c Coord) []Coord

func (f NeighborhoodFunc) Neighbors(c Coord) []Coord {
	return f(c)
}

var (
	//Moore is the standard 8 cells neighborhood from a 3x3 square
	Moore = NeighborhoodFunc(func(c Coord) []Coord {
		x, y := c.X, c.Y
		return []Coord{
			{x - 1, y - 1}, {x, y - 1}, {x + 1, y - 1},
			{x - 1, y}, {x + 1, y},
			{x - 1, y + 1}, {x, y + 1}, {x + 1, y + 1},
		}
	})

	//Hex is the hexagonal neighborhood mapped to a square grid
	Hex = NeighborhoodFunc(func(c Coord) []Coord {
		x, y := c.X, c.Y
		return []Coord{
			{x, y - 1}, {x + 1, y - 1},
			{x - 1, y}, {x + 1, y},
			{x - 1, y + 1}, {x, y + 1},
		}
	})

	//VonNeumann is the 4 cells orthogonal neighborhood
	VonNeumann = NeighborhoodFunc(func(c Coord) []Coord {
		x, y := c.X, c.Y
		return []Coord{
			{x, y - 1},
			{x - 1, y}, {x + 1, y},
			{x, y + 1},
		}
	})

	neighborhoods = map[string]Neighborhood{
		"moore":      Moore,
		"hex":        Hex,
		"vonneumann": VonNeumann,
	}
)

//LookupNeighborhood returns the registered neighborhood by name
func LookupNeighborhood(name string) (Neighborhood, error) {
	nb, ok := neighborhoods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNeighborhood, name)
	}
	return nb, nil
}

//NeighborhoodNames returns the sorted names of the registered neighborhoods
func NeighborhoodNames() []string {
	names := make([]string, 0, len(neighborhoods))
	for k := range neighborhoods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
