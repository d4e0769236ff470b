package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// SHA1Hex returns the lowercase hex SHA-1 digest of s. Instance and song
// identities are digests of tune text, so this is an identity key, not a
// security primitive.
func SHA1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
