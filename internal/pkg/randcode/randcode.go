// Package randcode generates short random codes from crypto/rand.
package randcode

import (
	"crypto/rand"
	"math/big"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Numeric returns n random decimal digits. Leading zeros are kept.
func Numeric(n int) (string, error) {
	return fromAlphabet(digits, n)
}

// Alphanumeric returns n random characters from [A-Za-z0-9].
func Alphanumeric(n int) (string, error) {
	return fromAlphabet(alphanumeric, n)
}

func fromAlphabet(alphabet string, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
