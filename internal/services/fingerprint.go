package services

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// NormalizeLogText canonicalizes log text before hashing: surrounding
// whitespace is trimmed and CRLF/CR line endings become LF, so the same log
// captured on different platforms fingerprints identically.
func NormalizeLogText(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.TrimSpace(normalized)
}

// ComputeFingerprint returns the hex SHA3-256 digest of the normalized text.
func ComputeFingerprint(text string) string {
	digest := sha3.Sum256([]byte(NormalizeLogText(text)))
	return hex.EncodeToString(digest[:])
}
