package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// New generates a numeric one-time code of the given length, each digit
// drawn uniformly from 0-9. Leading zeros are allowed, so the code is
// handled as a string end to end.
func New(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("otp length must be positive, got %d", length)
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b[i] = '0' + byte(n.Int64())
	}
	return string(b), nil
}
