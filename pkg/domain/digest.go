package domain

import (
	"crypto/sha256"
	"encoding/hex"

	dErrors "tradevault/pkg/domain-errors"
)

// Digest is a document's canonical identity: the lowercase hex SHA-256 of its
// full byte content. Equal digests imply equal bytes; collision probability
// is treated as zero.
type Digest string

// DigestHexLen is the length of an encoded SHA-256 digest.
const DigestHexLen = 64

// ComputeDigest hashes the full content and returns its identity.
func ComputeDigest(content []byte) Digest {
	sum := sha256.Sum256(content)
	return Digest(hex.EncodeToString(sum[:]))
}

// ParseDigest constructs a Digest from external input.
func ParseDigest(s string) (Digest, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "digest cannot be empty")
	}
	if len(s) != DigestHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "digest must be 64 hex characters")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "digest must be hex encoded")
	}
	return Digest(s), nil
}

func (d Digest) String() string { return string(d) }

// Short returns a truncated form for log lines and descriptions.
func (d Digest) Short() string {
	if len(d) < 16 {
		return string(d)
	}
	return string(d[:16]) + "..."
}
