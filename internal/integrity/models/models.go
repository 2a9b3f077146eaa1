package models

import (
	"time"

	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// CheckStatus is the outcome of one integrity check. PENDING covers both a
// check that has not run yet and a locator the engine cannot resolve;
// ambiguity is never reported as tampering.
type CheckStatus string

const (
	CheckPending CheckStatus = "PENDING"
	CheckPass    CheckStatus = "PASS"
	CheckFail    CheckStatus = "FAIL"
)

var validCheckStatuses = map[CheckStatus]bool{
	CheckPending: true,
	CheckPass:    true,
	CheckFail:    true,
}

func ParseCheckStatus(s string) (CheckStatus, error) {
	st := CheckStatus(s)
	if !validCheckStatuses[st] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid check status: "+s)
	}
	return st, nil
}

func (s CheckStatus) IsValid() bool  { return validCheckStatuses[s] }
func (s CheckStatus) String() string { return string(s) }

// Severity ranks an alert's urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AlertType names what went wrong. The set is open-ended; these are the
// types the verification engine raises.
type AlertType string

const (
	AlertIntegrityFailure AlertType = "INTEGRITY_FAILURE"
	AlertFileNotFound     AlertType = "FILE_NOT_FOUND"
	AlertMissingLocator   AlertType = "MISSING_FILE_URL"
)

// Check is one integrity verification of one document.
type Check struct {
	ID           id.CheckID
	DocumentID   id.DocumentID
	CheckType    string
	Status       CheckStatus
	StoredHash   id.Digest
	ComputedHash *id.Digest
	CheckedAt    *time.Time
	CheckedBy    string
	Remarks      string
	CreatedAt    time.Time
}

// Alert is an operator-facing signal raised by a failed or degraded check.
type Alert struct {
	ID             id.AlertID
	Type           AlertType
	Severity       Severity
	DocumentID     *id.DocumentID
	CheckID        *id.CheckID
	Message        string
	Acknowledged   bool
	AcknowledgedBy *id.UserID
	AcknowledgedAt *time.Time
	CreatedAt      time.Time
}

// CheckFilter narrows check listings.
type CheckFilter struct {
	DocumentID *id.DocumentID
	Status     *CheckStatus
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Acknowledged *bool
	Type         *AlertType
}

// Page bounds a listing. Zero Limit means the store default.
type Page struct {
	Limit  int
	Offset int
}

// FailedDocument is one entry in a verification report's failure detail.
type FailedDocument struct {
	DocumentID   id.DocumentID
	DocNumber    string
	Reason       string
	StoredHash   *id.Digest
	ComputedHash *id.Digest
}

// Report summarizes one verification batch. Pending checks count toward
// TotalChecked but neither Passed nor Failed.
type Report struct {
	TotalChecked    int
	Passed          int
	Failed          int
	FailedDocuments []FailedDocument
	Errors          []string
}
