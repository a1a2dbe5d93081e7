// Package token generates one-time subscription confirmation tokens.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Length matches the opaque token format the confirmation endpoint
	// accepts: 25 alphanumeric characters.
	Length = 25
)

// Generate creates a cryptographically secure random confirmation token.
// Each character is drawn independently so the result carries no modulo bias.
func Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not generate token: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
