package handler

import (
	"time"

	"tradevault/internal/integrity/models"
)

// ReportResponse is the HTTP response for POST /integrity/verify.
type ReportResponse struct {
	TotalChecked    int                      `json:"total_checked"`
	Passed          int                      `json:"passed"`
	Failed          int                      `json:"failed"`
	FailedDocuments []FailedDocumentResponse `json:"failed_documents"`
	Errors          []string                 `json:"errors"`
}

// FailedDocumentResponse is one failed document in a verification report.
type FailedDocumentResponse struct {
	DocumentID   string  `json:"document_id"`
	DocNumber    string  `json:"doc_number"`
	Reason       string  `json:"reason"`
	StoredHash   *string `json:"stored_hash,omitempty"`
	ComputedHash *string `json:"computed_hash,omitempty"`
}

// FromReport converts a domain report to an HTTP response.
func FromReport(report *models.Report) *ReportResponse {
	failed := make([]FailedDocumentResponse, 0, len(report.FailedDocuments))
	for _, f := range report.FailedDocuments {
		item := FailedDocumentResponse{
			DocumentID: f.DocumentID.String(),
			DocNumber:  f.DocNumber,
			Reason:     f.Reason,
		}
		if f.StoredHash != nil {
			stored := f.StoredHash.String()
			item.StoredHash = &stored
		}
		if f.ComputedHash != nil {
			computed := f.ComputedHash.String()
			item.ComputedHash = &computed
		}
		failed = append(failed, item)
	}
	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	return &ReportResponse{
		TotalChecked:    report.TotalChecked,
		Passed:          report.Passed,
		Failed:          report.Failed,
		FailedDocuments: failed,
		Errors:          errs,
	}
}

// CheckResponse is the HTTP representation of one integrity check.
type CheckResponse struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	CheckType    string     `json:"check_type"`
	Status       string     `json:"status"`
	StoredHash   string     `json:"stored_hash"`
	ComputedHash *string    `json:"computed_hash,omitempty"`
	CheckedAt    *time.Time `json:"checked_at,omitempty"`
	CheckedBy    string     `json:"checked_by"`
	Remarks      string     `json:"remarks,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FromChecks converts a check slice to HTTP responses.
func FromChecks(checks []models.Check) []CheckResponse {
	out := make([]CheckResponse, 0, len(checks))
	for _, c := range checks {
		item := CheckResponse{
			ID:         c.ID.String(),
			DocumentID: c.DocumentID.String(),
			CheckType:  c.CheckType,
			Status:     string(c.Status),
			StoredHash: c.StoredHash.String(),
			CheckedAt:  c.CheckedAt,
			CheckedBy:  c.CheckedBy,
			Remarks:    c.Remarks,
			CreatedAt:  c.CreatedAt,
		}
		if c.ComputedHash != nil {
			computed := c.ComputedHash.String()
			item.ComputedHash = &computed
		}
		out = append(out, item)
	}
	return out
}

// AlertResponse is the HTTP representation of one alert.
type AlertResponse struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	DocumentID     *string    `json:"document_id,omitempty"`
	CheckID        *string    `json:"check_id,omitempty"`
	Message        string     `json:"message"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// FromAlert converts a domain alert to an HTTP response.
func FromAlert(a *models.Alert) *AlertResponse {
	resp := &AlertResponse{
		ID:             a.ID.String(),
		Type:           string(a.Type),
		Severity:       string(a.Severity),
		Message:        a.Message,
		Acknowledged:   a.Acknowledged,
		AcknowledgedAt: a.AcknowledgedAt,
		CreatedAt:      a.CreatedAt,
	}
	if a.DocumentID != nil {
		docID := a.DocumentID.String()
		resp.DocumentID = &docID
	}
	if a.CheckID != nil {
		checkID := a.CheckID.String()
		resp.CheckID = &checkID
	}
	if a.AcknowledgedBy != nil {
		ackedBy := a.AcknowledgedBy.String()
		resp.AcknowledgedBy = &ackedBy
	}
	return resp
}

// FromAlerts converts an alert slice to HTTP responses.
func FromAlerts(alerts []models.Alert) []*AlertResponse {
	out := make([]*AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, FromAlert(&alerts[i]))
	}
	return out
}
