package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// RandomInt generates a cryptographically secure random integer in the range [0, max). Used by Retry's jitter.
func RandomInt(max int) int {
	if max <= 0 {
		return 0
	}
	
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// There is no fallback source: a crypto/rand failure is fatal.
		// This should rarely happen
		panic("failed to generate random number: " + err.Error())
	}
	
	return int(n.Int64())
}

// MD5Hex hashes s and returns the hex digest. Used for the Artifact
// Cache's request fingerprint — non-cryptographic use, collision
// resistance is not a requirement here (§4.2).
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}