package universe

import (
	"errors"
	"fmt"
	"strings"
)

//ErrInvalidRule is returned when a rule name or a B/S notation can't be parsed
var ErrInvalidRule = errors.New("invalid rule")

//Change is the transition of a cell status decided by a Rule
type Change int

const (
	NoChange Change = iota
	Birth
	Death
)

func (c Change) String() string {
	switch c {
	case Birth:
		return "birth"
	case Death:
		return "death"
	}
	return "none"
}

//Rule decides the change of a cell knowing its status and the number of live neighbors
//implementations must be pure
type Rule interface {
	Transition(status Cell, liveNeighbors int) Change
}

//RuleFunc adapts a plain function to the Rule interface
type RuleFunc func(status Cell, liveNeighbors int) Change

func (f RuleFunc) Transition(status Cell, liveNeighbors int) Change {
	return f(status, liveNeighbors)
}

var (
	//Conway is the standard rule: a live cell survives with 2 or 3 neighbors, a dead one is born with 3
	Conway = RuleFunc(func(status Cell, n int) Change {
		if status == Live && (n < 2 || n > 3) {
			return Death
		} else if status == Dead && n == 3 {
			return Birth
		}
		return NoChange
	})

	//Custom is the Advent of Code rule, usually played on the hex neighborhood
	Custom = RuleFunc(func(status Cell, n int) Change {
		if status == Live && (n == 0 || n > 2) {
			return Death
		} else if status == Dead && n == 2 {
			return Birth
		}
		return NoChange
	})
)

//LifeLike is an outer totalistic rule in B/S notation, e.g. B3/S23 for Conway or B36/S23 for HighLife
type LifeLike struct {
	born    [9]bool
	survive [9]bool
}

func (r LifeLike) Transition(status Cell, n int) Change {
	if n < 0 || n > 8 {
		if status == Live {
			return Death
		}
		return NoChange
	}
	if status == Live && !r.survive[n] {
		return Death
	} else if status == Dead && r.born[n] {
		return Birth
	}
	return NoChange
}

//String returns the rule in B/S notation
func (r LifeLike) String() string {
	var b strings.Builder
	b.WriteByte('B')
	for i, ok := range r.born {
		if ok {
			b.WriteByte(byte('0' + i))
		}
	}
	b.WriteString("/S")
	for i, ok := range r.survive {
		if ok {
			b.WriteByte(byte('0' + i))
		}
	}
	return b.String()
}

//ParseRule parses the B/S notation, case insensitive
func ParseRule(s string) (LifeLike, error) {
	var r LifeLike
	bs, ss, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "/")
	if !ok || !strings.HasPrefix(bs, "B") || !strings.HasPrefix(ss, "S") {
		return r, fmt.Errorf("%w: %q, expected B<digits>/S<digits>", ErrInvalidRule, s)
	}
	if err := parseCounts(bs[1:], &r.born); err != nil {
		return r, fmt.Errorf("%w: %q: %v", ErrInvalidRule, s, err)
	}
	if err := parseCounts(ss[1:], &r.survive); err != nil {
		return r, fmt.Errorf("%w: %q: %v", ErrInvalidRule, s, err)
	}
	return r, nil
}

func parseCounts(digits string, set *[9]bool) error {
	for _, d := range digits {
		if d < '0' || d > '8' {
			return fmt.Errorf("neighbor count %q out of range 0-8", d)
		}
		set[d-'0'] = true
	}
	return nil
}

//LookupRule returns the rule by name: "conway", "custom" or a B/S notation
func LookupRule(name string) (Rule, error) {
	switch strings.ToLower(name) {
	case "conway":
		return Conway, nil
	case "custom":
		return Custom, nil
	}
	r, err := ParseRule(name)
	if err != nil {
		return nil, err
	}
	return r, nil
}
