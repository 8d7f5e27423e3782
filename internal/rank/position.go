package rank

import (
	"fmt"
	"strconv"
	"strings"
)

// PositionKind identifies the kind of a requested position.
type PositionKind int

const (
	// PositionNone keeps the current rank (updates) or appends (inserts).
	PositionNone PositionKind = iota
	// PositionIndex places the record at a 0-based index among the other
	// records of the scope.
	PositionIndex
	// PositionAppend places the record last.
	PositionAppend
	// PositionMoveUp swaps the record one step toward the front.
	PositionMoveUp
	// PositionMoveDown swaps the record one step toward the back.
	PositionMoveDown
)

// Position is the transient placement request supplied with a mutation.
// It is never persisted.
type Position struct {
	Kind  PositionKind
	Index int
}

var (
	None     = Position{}
	Append   = Position{Kind: PositionAppend}
	MoveUp   = Position{Kind: PositionMoveUp}
	MoveDown = Position{Kind: PositionMoveDown}
)

// At requests the 0-based index i.
func At(i int) Position {
	return Position{Kind: PositionIndex, Index: i}
}

// ParsePosition parses the textual forms used by the CLI and scenario files:
// an integer index, "first", "last"/"append", "up", "down", or ""/"none".
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "first":
		return At(0), nil
	case "last", "append":
		return Append, nil
	case "up":
		return MoveUp, nil
	case "down":
		return MoveDown, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return None, fmt.Errorf("invalid position %q: want an index, first, last, up or down", s)
	}
	return At(n), nil
}

// IsMove reports whether the position is a directional move.
func (p Position) IsMove() bool {
	return p.Kind == PositionMoveUp || p.Kind == PositionMoveDown
}

func (p Position) String() string {
	switch p.Kind {
	case PositionIndex:
		return strconv.Itoa(p.Index)
	case PositionAppend:
		return "append"
	case PositionMoveUp:
		return "up"
	case PositionMoveDown:
		return "down"
	default:
		return "none"
	}
}

// forInsert maps positions that need an existing rank onto Append.
func (p Position) forInsert() Position {
	if p.Kind == PositionNone || p.IsMove() {
		return Append
	}
	return p
}
