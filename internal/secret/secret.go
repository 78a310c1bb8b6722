// Package secret derives the symmetric key used to sign outbound webhooks.
package secret

import (
	"crypto/sha256"
	"encoding/hex"
)

// Derive computes the webhook signing secret for an instance. The secret is
// the first 32 hex characters of the SHA-256 digest of instanceID followed by
// encryptionKey. Deterministic: the same inputs always yield the same secret,
// so it is recomputed on every run instead of being stored.
//
// Empty inputs are allowed and produce a well-defined (if weak) secret;
// rejecting them is the caller's job.
func Derive(instanceID, encryptionKey string) string {
	sum := sha256.Sum256([]byte(instanceID + encryptionKey))
	return hex.EncodeToString(sum[:])[:32]
}
