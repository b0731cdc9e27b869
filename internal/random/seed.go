// Package random draws dice seeds.
//
// A game is replayable from its seed, so an unseeded game still gets one,
// drawn from crypto/rand and stored with the game.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Unseeded is the seed value that asks for a fresh seed.
const Unseeded int64 = 0

const maxDraws = 4

var entropy io.Reader = crand.Reader

// NewSeed draws a seed that is never Unseeded.
func NewSeed() (int64, error) {
	var b [8]byte
	for range maxDraws {
		if _, err := io.ReadFull(entropy, b[:]); err != nil {
			return Unseeded, fmt.Errorf("read random seed: %w", err)
		}
		if seed := int64(binary.LittleEndian.Uint64(b[:])); seed != Unseeded {
			return seed, nil
		}
	}
	return Unseeded, errors.New("read random seed: entropy kept returning zero")
}

// ResolveSeed keeps an explicit seed and draws one for Unseeded.
func ResolveSeed(seed int64) (int64, error) {
	if seed != Unseeded {
		return seed, nil
	}
	return NewSeed()
}
