// Package id generates identifiers for embed jobs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Prefix starts every generated ID.
const Prefix = "embed-"

// Generate returns a new job ID of the form embed-<unix seconds>-<8 hex chars>,
// e.g. embed-1760572800-a1b2c3d4.
func Generate() string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("%s%d-%d", Prefix, timestamp, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s%d-%s", Prefix, timestamp, hex.EncodeToString(random))
}
