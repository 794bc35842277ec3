package lift

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "lfmerge/lift/v1"
	DomainUpdate   = "lfmerge/update/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashDocument returns the content hash of serialized LIFT document bytes.
func HashDocument(data []byte) string {
	return hashWithDomain(DomainDocument, data)
}

// HashUpdate returns the content hash of an update file's bytes.
func HashUpdate(data []byte) string {
	return hashWithDomain(DomainUpdate, data)
}
