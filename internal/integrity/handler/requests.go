package handler

import (
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	strutil "tradevault/pkg/platform/strings"
)

// VerifyRequest is the HTTP request body for POST /integrity/verify. An
// empty body verifies every registered document.
type VerifyRequest struct {
	DocumentIDs []string `json:"document_ids,omitempty"`

	parsedIDs []id.DocumentID
}

// Validate validates and parses the request. Repeated ids verify once.
func (r *VerifyRequest) Validate() error {
	for _, raw := range strutil.DedupeAndTrim(r.DocumentIDs) {
		docID, err := id.ParseDocumentID(raw)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "document_ids contains an invalid id: "+raw)
		}
		r.parsedIDs = append(r.parsedIDs, docID)
	}
	return nil
}

// ParsedDocumentIDs returns the validated target ids, nil for verify-all.
func (r *VerifyRequest) ParsedDocumentIDs() []id.DocumentID { return r.parsedIDs }
