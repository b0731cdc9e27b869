package dice

import (
	"fmt"
	"math/rand"
)

// Roller rolls n dice and returns their faces. Roll(0) returns an empty
// slice. Implementations never fail.
type Roller interface {
	Roll(n int) []Face
}

// SeededRoller rolls uniformly over 1..12 from a seeded source.
//
// # Determinism
//
// Two rollers built from the same seed produce the same sequence of faces
// for the same sequence of Roll calls, which makes a whole game replayable
// from its stored seed.
type SeededRoller struct {
	rng *rand.Rand
}

// NewSeededRoller returns a roller backed by a math/rand source.
func NewSeededRoller(seed int64) *SeededRoller {
	return &SeededRoller{rng: rand.New(rand.NewSource(seed))}
}

// Roll rolls n dice.
func (r *SeededRoller) Roll(n int) []Face {
	return RollWithRng(r.rng, n)
}

// RollWithRng rolls n dice using a provided random source.
// This is useful when you want to control the RNG directly.
func RollWithRng(rng *rand.Rand, n int) []Face {
	if n <= 0 {
		return []Face{}
	}
	faces := make([]Face, n)
	for i := range faces {
		faces[i] = rollDie(rng)
	}
	return faces
}

// rollDie rolls a single twelve-sided die.
func rollDie(rng *rand.Rand) Face {
	return Face(rng.Intn(Sides) + 1)
}

// ScriptedRoller replays a fixed queue of faces, taking them in order.
// It drives deterministic tests and replays of recorded turns.
type ScriptedRoller struct {
	faces []Face
	next  int
}

// NewScriptedRoller returns a roller that yields faces in order.
func NewScriptedRoller(faces ...Face) *ScriptedRoller {
	return &ScriptedRoller{faces: Clone(faces)}
}

// Roll takes the next n faces from the queue. Running out of scripted
// faces is a test setup bug and panics.
func (r *ScriptedRoller) Roll(n int) []Face {
	if n <= 0 {
		return []Face{}
	}
	if r.next+n > len(r.faces) {
		panic(fmt.Sprintf("scripted roller exhausted: need %d faces, %d left", n, len(r.faces)-r.next))
	}
	out := Clone(r.faces[r.next : r.next+n])
	r.next += n
	return out
}

// Remaining reports how many scripted faces have not been rolled yet.
func (r *ScriptedRoller) Remaining() int {
	return len(r.faces) - r.next
}
