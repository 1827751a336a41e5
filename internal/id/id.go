// Package id generates short request identifiers for log and trace
// correlation.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

func New() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req-unknown"
	}
	return hex.EncodeToString(b[:])
}
