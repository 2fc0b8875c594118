package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const secureTokenBytes = 32

// GenerateSecureToken returns 32 random bytes hex-encoded.
func GenerateSecureToken() (string, error) {
	b := make([]byte, secureTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
