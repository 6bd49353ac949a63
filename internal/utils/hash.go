package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateDataSHA256 returns the hex sha256 of data, used for content-addressed cache keys.
func CalculateDataSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
