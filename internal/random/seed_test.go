package random

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func withEntropy(t *testing.T, r io.Reader) {
	t.Helper()
	prev := entropy
	entropy = r
	t.Cleanup(func() { entropy = prev })
}

func TestResolveSeedKeepsExplicitSeed(t *testing.T) {
	got, err := ResolveSeed(42)
	if err != nil {
		t.Fatalf("resolve seed: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected seed 42, got %d", got)
	}
}

func TestResolveSeedGeneratesWhenUnseeded(t *testing.T) {
	first, err := ResolveSeed(Unseeded)
	if err != nil {
		t.Fatalf("resolve seed: %v", err)
	}
	second, err := ResolveSeed(Unseeded)
	if err != nil {
		t.Fatalf("resolve seed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct generated seeds, got %d twice", first)
	}
}

func TestNewSeedSkipsZeroDraws(t *testing.T) {
	draws := append(make([]byte, 8), 7, 0, 0, 0, 0, 0, 0, 0)
	withEntropy(t, bytes.NewReader(draws))

	got, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	if got != 7 {
		t.Fatalf("seed = %d, want 7", got)
	}
}

func TestNewSeedErrors(t *testing.T) {
	tests := []struct {
		name string
		r    io.Reader
	}{
		{name: "only zeros", r: bytes.NewReader(make([]byte, 8*maxDraws))},
		{name: "short read", r: bytes.NewReader([]byte{1, 2})},
		{name: "reader fails", r: failingReader{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withEntropy(t, tc.r)
			if _, err := NewSeed(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }
