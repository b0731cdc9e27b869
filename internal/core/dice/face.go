// Package dice models the twelve-sided dice used by Naasii and the roll
// collaborator the turn engine consumes.
package dice

import (
	"strconv"
	"strings"
)

// Face is the value showing on a twelve-sided die.
type Face int

const (
	// Sides is the number of faces on every die.
	Sides = 12
	// MinPlain is the lowest plain face.
	MinPlain Face = 1
	// MaxPlain is the highest plain face.
	MaxPlain Face = 11
	// Wildcard substitutes for any plain face in scoring and cancels an
	// adversary Wildcard.
	Wildcard Face = 12
)

// IsWildcard reports whether f is the Wildcard face.
func (f Face) IsWildcard() bool { return f == Wildcard }

// IsPlain reports whether f is one of the plain faces 1..11.
func (f Face) IsPlain() bool { return f >= MinPlain && f <= MaxPlain }

// Valid reports whether f is a face that can appear on a die.
func (f Face) Valid() bool { return f.IsPlain() || f.IsWildcard() }

// Count returns how many faces equal value.
func Count(faces []Face, value Face) int {
	n := 0
	for _, f := range faces {
		if f == value {
			n++
		}
	}
	return n
}

// CountWildcards returns how many faces are Wildcards.
func CountWildcards(faces []Face) int {
	return Count(faces, Wildcard)
}

// Clone returns a copy of faces that never aliases the input. A nil or
// empty input yields an empty, non-nil slice.
func Clone(faces []Face) []Face {
	out := make([]Face, len(faces))
	copy(out, faces)
	return out
}

// Format renders faces as space-separated values.
func Format(faces []Face) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = strconv.Itoa(int(f))
	}
	return strings.Join(parts, " ")
}
