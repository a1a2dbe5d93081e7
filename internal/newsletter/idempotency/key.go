// Package idempotency derives the ledger key for a (recipient, message) pair.
package idempotency

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Key fingerprints a (subscriber name, message body) pair as lowercase hex of
// a SHA-256 digest. The name is length-prefixed before hashing so the
// encoding is injective: Key("Tim", "abc") and Key("Ti", "mabc") hash
// different byte streams.
func Key(subscriberName, messageBody string) string {
	h := sha256.New()

	var nameLen [8]byte
	binary.BigEndian.PutUint64(nameLen[:], uint64(len(subscriberName)))
	h.Write(nameLen[:])
	h.Write([]byte(subscriberName))
	h.Write([]byte(messageBody))

	return hex.EncodeToString(h.Sum(nil))
}
