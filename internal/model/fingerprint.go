package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeFingerprint hashes a function body after whitespace normalization:
// trailing whitespace is stripped from each line and blank lines are dropped.
// Any token-level change alters the digest; adding or removing blank lines,
// or shifting the function within its file, does not. Only the body slice is
// hashed, never absolute offsets.
func ComputeFingerprint(body string) string {
	h := sha256.New()
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
