package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"tradevault/internal/document/models"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// maxUploadBytes bounds decoded upload size. Trade documents are PDFs and
// scans, not bulk data.
const maxUploadBytes = 25 << 20

// UploadRequest is the HTTP request body for POST /documents.
type UploadRequest struct {
	ContentBase64 string  `json:"content_base64"`
	DocType       string  `json:"doc_type"`
	DocNumber     string  `json:"doc_number"`
	IssuedAt      *string `json:"issued_at,omitempty"`
	TradeID       *string `json:"trade_id,omitempty"`
	Filename      string  `json:"filename,omitempty"`

	parsedContent []byte
	parsedType    models.DocType
	parsedIssued  time.Time
	parsedTradeID *id.TradeID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *UploadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.ContentBase64) == "" {
		return dErrors.New(dErrors.CodeValidation, "content_base64 is required")
	}
	content, err := base64.StdEncoding.DecodeString(r.ContentBase64)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "content_base64 is not valid base64")
	}
	if len(content) > maxUploadBytes {
		return dErrors.New(dErrors.CodeValidation, "document content exceeds the upload size limit")
	}
	r.parsedContent = content

	docType, err := models.ParseDocType(strings.TrimSpace(r.DocType))
	if err != nil {
		return err
	}
	r.parsedType = docType

	r.DocNumber = strings.TrimSpace(r.DocNumber)
	if r.DocNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "doc_number is required")
	}

	if r.IssuedAt != nil {
		issued, err := time.Parse(time.RFC3339, *r.IssuedAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "issued_at must be RFC 3339")
		}
		r.parsedIssued = issued
	}

	if r.TradeID != nil && *r.TradeID != "" {
		tradeID, err := id.ParseTradeID(*r.TradeID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "trade_id is not a valid id")
		}
		r.parsedTradeID = &tradeID
	}
	return nil
}

// ParsedContent returns the decoded document bytes.
func (r *UploadRequest) ParsedContent() []byte { return r.parsedContent }

// ParsedMetadata returns the validated registration metadata.
func (r *UploadRequest) ParsedMetadata() models.Metadata {
	return models.Metadata{
		DocType:       r.parsedType,
		DocNumber:     r.DocNumber,
		IssuedAt:      r.parsedIssued,
		TradeID:       r.parsedTradeID,
		SuggestedName: r.Filename,
	}
}

// CreateRecordRequest is the HTTP request body for POST /documents/records.
type CreateRecordRequest struct {
	Digest    string  `json:"digest"`
	Locator   string  `json:"locator,omitempty"`
	DocType   string  `json:"doc_type"`
	DocNumber string  `json:"doc_number"`
	IssuedAt  *string `json:"issued_at,omitempty"`
	TradeID   *string `json:"trade_id,omitempty"`

	parsedDigest  id.Digest
	parsedType    models.DocType
	parsedIssued  time.Time
	parsedTradeID *id.TradeID
}

// Validate validates and parses the request.
func (r *CreateRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	digest, err := id.ParseDigest(strings.TrimSpace(r.Digest))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "digest must be a 64-character hex SHA-256")
	}
	r.parsedDigest = digest

	docType, err := models.ParseDocType(strings.TrimSpace(r.DocType))
	if err != nil {
		return err
	}
	r.parsedType = docType

	r.DocNumber = strings.TrimSpace(r.DocNumber)
	if r.DocNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "doc_number is required")
	}

	if r.IssuedAt != nil {
		issued, err := time.Parse(time.RFC3339, *r.IssuedAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "issued_at must be RFC 3339")
		}
		r.parsedIssued = issued
	}

	if r.TradeID != nil && *r.TradeID != "" {
		tradeID, err := id.ParseTradeID(*r.TradeID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "trade_id is not a valid id")
		}
		r.parsedTradeID = &tradeID
	}
	return nil
}

// ParsedDigest returns the validated content digest.
func (r *CreateRecordRequest) ParsedDigest() id.Digest { return r.parsedDigest }

// ParsedMetadata returns the validated registration metadata.
func (r *CreateRecordRequest) ParsedMetadata() models.Metadata {
	return models.Metadata{
		DocType:   r.parsedType,
		DocNumber: r.DocNumber,
		IssuedAt:  r.parsedIssued,
		TradeID:   r.parsedTradeID,
	}
}

// UpdateRequest is the HTTP request body for PATCH /documents/{documentID}.
// All fields are optional; absent fields stay unchanged.
type UpdateRequest struct {
	ContentBase64 *string `json:"content_base64,omitempty"`
	DocType       *string `json:"doc_type,omitempty"`
	DocNumber     *string `json:"doc_number,omitempty"`
	IssuedAt      *string `json:"issued_at,omitempty"`

	parsedContent []byte
	parsedMeta    *models.MetadataUpdate
}

// Validate validates and parses the request.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ContentBase64 == nil && r.DocType == nil && r.DocNumber == nil && r.IssuedAt == nil {
		return dErrors.New(dErrors.CodeValidation, "update requires at least one field")
	}

	if r.ContentBase64 != nil {
		content, err := base64.StdEncoding.DecodeString(*r.ContentBase64)
		if err != nil {
			return dErrors.New(dErrors.CodeBadRequest, "content_base64 is not valid base64")
		}
		if len(content) == 0 {
			return dErrors.New(dErrors.CodeValidation, "replacement content must not be empty")
		}
		if len(content) > maxUploadBytes {
			return dErrors.New(dErrors.CodeValidation, "document content exceeds the upload size limit")
		}
		r.parsedContent = content
	}

	meta := &models.MetadataUpdate{}
	hasMeta := false
	if r.DocType != nil {
		docType, err := models.ParseDocType(strings.TrimSpace(*r.DocType))
		if err != nil {
			return err
		}
		meta.DocType = &docType
		hasMeta = true
	}
	if r.DocNumber != nil {
		number := strings.TrimSpace(*r.DocNumber)
		if number == "" {
			return dErrors.New(dErrors.CodeValidation, "doc_number must not be blank")
		}
		meta.DocNumber = &number
		hasMeta = true
	}
	if r.IssuedAt != nil {
		issued, err := time.Parse(time.RFC3339, *r.IssuedAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "issued_at must be RFC 3339")
		}
		meta.IssuedAt = &issued
		hasMeta = true
	}
	if hasMeta {
		r.parsedMeta = meta
	}
	return nil
}

// ParsedContent returns the decoded replacement bytes, nil for metadata-only
// updates.
func (r *UpdateRequest) ParsedContent() []byte { return r.parsedContent }

// ParsedMetadata returns the metadata changes, nil when only content changed.
func (r *UpdateRequest) ParsedMetadata() *models.MetadataUpdate { return r.parsedMeta }

// VerifyRequest is the HTTP request body for POST /documents/{documentID}/verify.
type VerifyRequest struct {
	ContentBase64 string `json:"content_base64"`

	parsedContent []byte
}

// Validate validates and parses the request.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ContentBase64 == "" {
		return dErrors.New(dErrors.CodeValidation, "content_base64 is required")
	}
	content, err := base64.StdEncoding.DecodeString(r.ContentBase64)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "content_base64 is not valid base64")
	}
	r.parsedContent = content
	return nil
}

// ParsedContent returns the decoded bytes to verify.
func (r *VerifyRequest) ParsedContent() []byte { return r.parsedContent }

// ShareRequest is the HTTP request body for POST /documents/{documentID}/share.
type ShareRequest struct {
	Recipient string `json:"recipient"`
}

// Validate validates the request.
func (r *ShareRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Recipient = strings.TrimSpace(r.Recipient)
	if r.Recipient == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	return nil
}
