package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// codeSpace spans [1000, 9999]. The range deliberately excludes codes with a
// leading zero, kept for compatibility with existing client expectations.
const (
	codeMin   = 1000
	codeSpace = 9000
)

// Generate returns a uniformly random 4-digit confirmation code.
func Generate() string {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(err)
	}
	return strconv.FormatInt(codeMin+n.Int64(), 10)
}
