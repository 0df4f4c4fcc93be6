package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateNumericCode returns a zero-padded random code of the given length.
func GenerateNumericCode(digits int) string {
	if digits <= 0 {
		digits = 6
	}
	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)

	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		// fallback: time-based entropy
		n = new(big.Int).Mod(big.NewInt(time.Now().UnixNano()), upper)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64())
}
