package utils

import (
	"crypto/rand"
	"fmt"
)

// NonceBytes is the length of a challenge nonce. 32 bytes = 256 bits,
// well above the 128-bit floor required for one-time challenges.
const NonceBytes = 32

// RandomNonce returns NonceBytes of cryptographically random data.
func RandomNonce() ([]byte, error) {
	b := make([]byte, NonceBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random nonce: %w", err)
	}
	return b, nil
}
