package models

import (
	"time"

	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// DocType enumerates the trade-finance document classes the registry accepts.
type DocType string

const (
	DocTypeLOC           DocType = "LOC"
	DocTypeInvoice       DocType = "INVOICE"
	DocTypeBillOfLading  DocType = "BILL_OF_LADING"
	DocTypePO            DocType = "PO"
	DocTypeCOO           DocType = "COO"
	DocTypeInsuranceCert DocType = "INSURANCE_CERT"
)

var validDocTypes = map[DocType]bool{
	DocTypeLOC:           true,
	DocTypeInvoice:       true,
	DocTypeBillOfLading:  true,
	DocTypePO:            true,
	DocTypeCOO:           true,
	DocTypeInsuranceCert: true,
}

// ParseDocType constructs a DocType from external input.
func ParseDocType(s string) (DocType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "doc_type cannot be empty")
	}
	t := DocType(s)
	if !validDocTypes[t] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid doc_type: "+s)
	}
	return t, nil
}

func (t DocType) IsValid() bool { return validDocTypes[t] }
func (t DocType) String() string { return string(t) }

// Document is one registered record in the custody registry. Its digest is
// its identity: at most one Document per digest system-wide. Records are
// never physically deleted; Deleted marks an auditable removal.
type Document struct {
	ID        id.DocumentID
	OwnerID   id.UserID
	Org       string
	DocType   DocType
	DocNumber string
	Locator   string
	Digest    id.Digest
	IssuedAt  time.Time
	TradeID   *id.TradeID
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Metadata carries the caller-supplied attributes for registration.
type Metadata struct {
	DocType       DocType
	DocNumber     string
	IssuedAt      time.Time
	TradeID       *id.TradeID
	SuggestedName string
}

// MetadataUpdate holds optional field updates; nil means unchanged.
type MetadataUpdate struct {
	DocType   *DocType
	DocNumber *string
	IssuedAt  *time.Time
}

// ContentChange describes what an update did to a document's identity, so the
// coordinating layer can decide what the audit ledger should record. The
// registry itself never writes ledger entries.
type ContentChange struct {
	OldDigest       id.Digest
	NewDigest       id.Digest
	ContentReplaced bool
	MetadataChanged bool
}

// DigestChanged reports whether the update moved the document to a new
// identity, i.e. the ledger needs a MODIFIED entry with a chain link.
func (c ContentChange) DigestChanged() bool {
	return c.ContentReplaced && c.OldDigest != c.NewDigest
}
