package hashing

import (
	"crypto/sha512"
	"encoding/hex"
)

// Calculate returns the hex encoded SHA-512 digest of data.
func Calculate(data []byte) string {
	h := sha512.Sum512(data)
	return hex.EncodeToString(h[:])
}

// CalculateSHA512 is Calculate for strings.
func CalculateSHA512(s string) string {
	return Calculate([]byte(s))
}
