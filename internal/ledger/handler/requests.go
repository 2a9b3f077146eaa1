package handler

import (
	"strings"

	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// BackfillRequest is the HTTP request body for POST /ledger/{entryID}/hash-before.
type BackfillRequest struct {
	HashBefore string `json:"hash_before"`

	parsedDigest id.Digest
}

// Validate validates and parses the request.
func (r *BackfillRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	digest, err := id.ParseDigest(strings.TrimSpace(r.HashBefore))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "hash_before must be a 64-character hex SHA-256")
	}
	r.parsedDigest = digest
	return nil
}

// ParsedDigest returns the validated digest.
func (r *BackfillRequest) ParsedDigest() id.Digest { return r.parsedDigest }
