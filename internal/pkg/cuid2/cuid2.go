// Package cuid2 generates prefixed, time-sortable identifiers for queue items,
// reviews and achievements.
package cuid2

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// randomLength is the random suffix length after the timestamp
const randomLength = 18

// EncodeTimestampBase62 encodes a Unix timestamp (seconds) as a 6-character base62 string.
// Produces lexicographically sortable output for timestamps.
func EncodeTimestampBase62(timestampSeconds int64) string {
	n := timestampSeconds
	result := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		result[i] = base62Alphabet[n%62]
		n = n / 62
	}
	return string(result)
}

// randomBase62 returns length uniformly distributed base62 characters.
// 6 bits are drawn per character and values >= 62 are rejected.
func randomBase62(length int) string {
	buf := make([]byte, (length*6)/8+4)
	if _, err := crypto_rand.Read(buf); err != nil {
		panic("failed to read random bytes: " + err.Error())
	}

	var result strings.Builder
	result.Grow(length)
	bitBuffer := uint64(0)
	bitsInBuffer := uint(0)
	byteIndex := 0

	for result.Len() < length {
		for bitsInBuffer < 6 && byteIndex < len(buf) {
			bitBuffer = (bitBuffer << 8) | uint64(buf[byteIndex])
			bitsInBuffer += 8
			byteIndex++
		}

		value := (bitBuffer >> (bitsInBuffer - 6)) & 0x3f
		bitsInBuffer -= 6
		if value < 62 {
			result.WriteByte(base62Alphabet[value])
		}

		// Out of random bytes, refill
		if byteIndex >= len(buf) && bitsInBuffer < 6 && result.Len() < length {
			if _, err := crypto_rand.Read(buf); err != nil {
				panic("failed to read random bytes: " + err.Error())
			}
			byteIndex = 0
		}
	}

	return result.String()
}

// New returns "<prefix>_<timestamp><random>", e.g. "syn_1rK5iqAb3cD5eF7gH9iJ1kLm".
// IDs generated in later seconds sort after earlier ones.
func New(prefix string) string {
	return newAt(prefix, time.Now())
}

func newAt(prefix string, t time.Time) string {
	return prefix + "_" + EncodeTimestampBase62(t.Unix()) + randomBase62(randomLength)
}
