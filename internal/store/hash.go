package store

import (
	"encoding/hex"
	"fmt"
	"io"

	"lukechampine.com/blake3"
)

// HashRecording returns the hex blake3-256 digest of r
func HashRecording(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash of recording: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
