package universe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

//ErrMalformedKey is returned when a key was not produced by EncodeKey
var ErrMalformedKey = errors.New("malformed cell key")

//Coord is a grid position, X is the column and Y is the row
type Coord struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

//Key is the sparse map key of a cell
//the comma is required: (1, 23) and (12, 3) must not collide
type Key string

//EncodeKey returns the key of the cell at x, y
func EncodeKey(x int, y int) Key {
	return Key(strconv.Itoa(x) + "," + strconv.Itoa(y))
}

//Key returns the key of the coordinate
func (c Coord) Key() Key {
	return EncodeKey(c.X, c.Y)
}

//DecodeKey is the inverse of EncodeKey
func DecodeKey(k Key) (Coord, error) {
	xs, ys, ok := strings.Cut(string(k), ",")
	if !ok {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	//signs, leading zeros and -0 parse but are not canonical
	if EncodeKey(x, y) != k {
		return Coord{}, fmt.Errorf("%w: %q", ErrMalformedKey, k)
	}
	return Coord{x, y}, nil
}

//Coord decodes the key, panics if the key is malformed
//the engine decodes only the keys it encoded itself
func (k Key) Coord() Coord {
	c, err := DecodeKey(k)
	if err != nil {
		panic(err)
	}
	return c
}

//keysOf encodes the list of coordinates
func keysOf(coords []Coord) []Key {
	keys := make([]Key, len(coords))
	for i, c := range coords {
		keys[i] = c.Key()
	}
	return keys
}
