package handler

import (
	"time"

	"tradevault/internal/document/models"
)

// DocumentResponse is the HTTP representation of a registered document.
type DocumentResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Org       string     `json:"org"`
	DocType   string     `json:"doc_type"`
	DocNumber string     `json:"doc_number"`
	Locator   string     `json:"locator,omitempty"`
	Digest    string     `json:"digest"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	TradeID   *string    `json:"trade_id,omitempty"`
	Deleted   bool       `json:"deleted,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// VerifyResponse is the HTTP response for POST /documents/{documentID}/verify.
type VerifyResponse struct {
	Match bool `json:"match"`
}

// FromDocument converts a domain document to an HTTP response.
func FromDocument(doc *models.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:        doc.ID.String(),
		OwnerID:   doc.OwnerID.String(),
		Org:       doc.Org,
		DocType:   string(doc.DocType),
		DocNumber: doc.DocNumber,
		Locator:   doc.Locator,
		Digest:    doc.Digest.String(),
		Deleted:   doc.Deleted,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if !doc.IssuedAt.IsZero() {
		issued := doc.IssuedAt
		resp.IssuedAt = &issued
	}
	if doc.TradeID != nil {
		tradeID := doc.TradeID.String()
		resp.TradeID = &tradeID
	}
	return resp
}

// FromDocuments converts a document slice to HTTP responses.
func FromDocuments(docs []models.Document) []*DocumentResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, FromDocument(&docs[i]))
	}
	return out
}
