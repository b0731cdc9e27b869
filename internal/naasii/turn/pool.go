package turn

import (
	"fmt"
	"sort"

	"github.com/louisbranch/naasii/internal/core/dice"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
)

// Pool is the participant's dice, split into locked dice committed for the
// turn and unlocked dice that may still be locked or re-rolled. Pool is a
// value: every transition returns a new Pool and leaves the receiver intact.
type Pool struct {
	locked   []dice.Face
	unlocked []dice.Face
}

// NewPool returns a pool holding copies of locked and unlocked.
func NewPool(locked, unlocked []dice.Face) Pool {
	return Pool{locked: dice.Clone(locked), unlocked: dice.Clone(unlocked)}
}

// Locked returns a copy of the locked dice.
func (p Pool) Locked() []dice.Face { return dice.Clone(p.locked) }

// Unlocked returns a copy of the unlocked dice.
func (p Pool) Unlocked() []dice.Face { return dice.Clone(p.unlocked) }

// Size returns the total number of dice.
func (p Pool) Size() int { return len(p.locked) + len(p.unlocked) }

// Empty reports whether no dice remain in either partition.
func (p Pool) Empty() bool { return p.Size() == 0 }

// Wildcards counts Wildcards across both partitions.
func (p Pool) Wildcards() int {
	return dice.CountWildcards(p.locked) + dice.CountWildcards(p.unlocked)
}

// WithUnlocked replaces the unlocked dice with a fresh roll.
func (p Pool) WithUnlocked(rolled []dice.Face) Pool {
	return Pool{locked: p.Locked(), unlocked: dice.Clone(rolled)}
}

// LockAll moves every unlocked die to the locked partition.
func (p Pool) LockAll() Pool {
	locked := append(p.Locked(), p.unlocked...)
	return Pool{locked: locked, unlocked: []dice.Face{}}
}

// Lock moves the unlocked dice at the given indices to the locked
// partition, in index order. Repeated indices select a die once. An empty
// selection or an index outside the unlocked dice is invalid input.
func (p Pool) Lock(indices []int) (Pool, error) {
	if len(indices) == 0 {
		return p, apperrors.New(apperrors.CodeInvalidInput, "select at least one die to lock")
	}
	selected := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.unlocked) {
			return p, apperrors.WithMetadata(
				apperrors.CodeInvalidInput,
				fmt.Sprintf("lock index %d is out of range", idx),
				map[string]string{"index": fmt.Sprint(idx), "unlocked": fmt.Sprint(len(p.unlocked))},
			)
		}
		selected[idx] = true
	}
	order := make([]int, 0, len(selected))
	for idx := range selected {
		order = append(order, idx)
	}
	sort.Ints(order)

	locked := p.Locked()
	for _, idx := range order {
		locked = append(locked, p.unlocked[idx])
	}
	unlocked := make([]dice.Face, 0, len(p.unlocked)-len(order))
	for idx, f := range p.unlocked {
		if !selected[idx] {
			unlocked = append(unlocked, f)
		}
	}
	return Pool{locked: locked, unlocked: unlocked}, nil
}

// CancelWildcards removes up to n Wildcards, taking unlocked ones before
// locked ones, and reports how many were removed.
func (p Pool) CancelWildcards(n int) (Pool, int) {
	unlocked, fromUnlocked := removeFaces(p.unlocked, dice.Wildcard, n)
	locked, fromLocked := removeFaces(p.locked, dice.Wildcard, n-fromUnlocked)
	return Pool{locked: locked, unlocked: unlocked}, fromUnlocked + fromLocked
}

// EliminateMatching removes every unlocked die that matches a plain face in
// adversary. Locked dice are never touched. The removed dice are returned in
// the order they were eliminated.
func (p Pool) EliminateMatching(adversary []dice.Face) (Pool, []dice.Face) {
	unlocked := p.Unlocked()
	removed := []dice.Face{}
	for _, b := range adversary {
		if !b.IsPlain() {
			continue
		}
		var hits int
		unlocked, hits = removeFaces(unlocked, b, len(unlocked))
		for i := 0; i < hits; i++ {
			removed = append(removed, b)
		}
	}
	return Pool{locked: p.Locked(), unlocked: unlocked}, removed
}

// removeFaces returns a copy of faces without the first n dice equal to
// value, and how many were removed.
func removeFaces(faces []dice.Face, value dice.Face, n int) ([]dice.Face, int) {
	out := make([]dice.Face, 0, len(faces))
	removed := 0
	for _, f := range faces {
		if f == value && removed < n {
			removed++
			continue
		}
		out = append(out, f)
	}
	return out, removed
}
