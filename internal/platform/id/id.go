// Package id generates identifiers for stored games and players.
//
// Identifiers are UUIDv7 bytes in lowercase base32hex (RFC 4648 section 7)
// without padding. The alphabet keeps byte order, so identifiers minted later
// sort after earlier ones.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// NewID returns a new time-ordered identifier.
func NewID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}
