package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"tradevault/internal/blobstore"
	documentmodels "tradevault/internal/document/models"
	documentstore "tradevault/internal/document/store"
	"tradevault/internal/integrity/models"
	"tradevault/internal/integrity/store"
	ledgermodels "tradevault/internal/ledger/models"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/sentinel"
	"tradevault/pkg/platform/tx"
)

var checksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tradevault_integrity_checks_total",
	Help: "Total integrity checks completed, by outcome",
}, []string{"status"})

const (
	checkTypeSHA256 = "SHA256"
	checkedBySystem = "SYSTEM"

	defaultConcurrency = 4
)

// LedgerAppender is the narrow ledger view the engine needs to record
// tamper evidence.
type LedgerAppender interface {
	Append(ctx context.Context, entry *ledgermodels.Entry) error
}

// Service recomputes document digests and compares them against the
// registry. A mismatch is expected operational data, not an error: it
// becomes a FAIL check, a CRITICAL alert, and an INTEGRITY_FAILED ledger
// entry, all committed atomically per document.
type Service struct {
	checks      store.Store
	docs        documentstore.Store
	blobs       blobstore.Store
	ledger      LedgerAppender
	runner      tx.Runner
	log         *slog.Logger
	concurrency int
}

func New(checks store.Store, docs documentstore.Store, blobs blobstore.Store, ledger LedgerAppender, runner tx.Runner, log *slog.Logger) (*Service, error) {
	if checks == nil {
		return nil, errors.New("integrity store is required")
	}
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger appender is required")
	}
	if runner == nil {
		runner = tx.NoopRunner{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		checks:      checks,
		docs:        docs,
		blobs:       blobs,
		ledger:      ledger,
		runner:      runner,
		log:         log,
		concurrency: defaultConcurrency,
	}, nil
}

// Verify runs integrity checks for the given documents, or for every
// document when none are named. Documents verify independently and
// concurrently; one bad document never blocks the rest, and its failure
// lands in the report's Errors.
func (s *Service) Verify(ctx context.Context, documentIDs []id.DocumentID) (*models.Report, error) {
	targets, report := s.resolveTargets(ctx, documentIDs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, doc := range targets {
		g.Go(func() error {
			outcome, err := s.verifyOne(gctx, &doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("error checking document %s: %v", doc.ID, err))
				return nil
			}
			report.TotalChecked++
			switch outcome.status {
			case models.CheckPass:
				report.Passed++
			case models.CheckFail:
				report.Failed++
				report.FailedDocuments = append(report.FailedDocuments, outcome.detail)
			}
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}

func (s *Service) resolveTargets(ctx context.Context, documentIDs []id.DocumentID) ([]documentmodels.Document, *models.Report) {
	report := &models.Report{}
	if len(documentIDs) == 0 {
		docs, err := s.docs.ListAll(ctx)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("error listing documents: %v", err))
			return nil, report
		}
		return docs, report
	}
	var targets []documentmodels.Document
	for _, docID := range documentIDs {
		doc, err := s.docs.FindByID(ctx, docID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("error checking document %s: %v", docID, err))
			continue
		}
		targets = append(targets, *doc)
	}
	return targets, report
}

type outcome struct {
	status models.CheckStatus
	detail models.FailedDocument
}

// verifyOne checks a single document. Check creation, outcome, alert, and
// ledger write commit as one transaction; partial tamper evidence is worse
// than none.
func (s *Service) verifyOne(ctx context.Context, doc *documentmodels.Document) (*outcome, error) {
	var out *outcome
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.runCheck(ctx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	checksCompleted.WithLabelValues(string(out.status)).Inc()
	return out, nil
}

func (s *Service) runCheck(ctx context.Context, doc *documentmodels.Document) (*outcome, error) {
	check := &models.Check{
		DocumentID: doc.ID,
		CheckType:  checkTypeSHA256,
		Status:     models.CheckPending,
		StoredHash: doc.Digest,
		CheckedBy:  checkedBySystem,
	}
	if err := s.checks.CreateCheck(ctx, check); err != nil {
		return nil, err
	}

	if doc.Locator == "" {
		return s.fail(ctx, doc, check, failParams{
			remarks:   "no file locator specified",
			alertType: models.AlertMissingLocator,
			severity:  models.SeverityMedium,
			message:   fmt.Sprintf("Document has no file locator: %s", doc.DocNumber),
			reason:    "No file locator",
		})
	}

	content, err := s.blobs.Retrieve(ctx, doc.Locator)
	switch {
	case errors.Is(err, sentinel.ErrUnsupportedScheme):
		// The engine cannot resolve this locator class; ambiguity must not
		// manufacture a tamper signal.
		check.Remarks = "locator scheme not supported for verification"
		if err := s.checks.UpdateCheck(ctx, check); err != nil {
			return nil, err
		}
		return &outcome{status: models.CheckPending}, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return s.fail(ctx, doc, check, failParams{
			remarks:   "file not found: " + doc.Locator,
			alertType: models.AlertFileNotFound,
			severity:  models.SeverityHigh,
			message:   fmt.Sprintf("Document file not found: %s (%s)", doc.DocNumber, doc.Locator),
			reason:    "File not found",
		})
	case err != nil:
		return s.fail(ctx, doc, check, failParams{
			remarks:   "content unreachable: " + err.Error(),
			alertType: models.AlertFileNotFound,
			severity:  models.SeverityHigh,
			message:   fmt.Sprintf("Document content unreachable: %s (%s)", doc.DocNumber, doc.Locator),
			reason:    "Content unreachable",
		})
	}

	computed := id.ComputeDigest(content)
	now := time.Now()
	check.ComputedHash = &computed
	check.CheckedAt = &now

	if computed == doc.Digest {
		check.Status = models.CheckPass
		check.Remarks = "integrity verified successfully"
		if err := s.checks.UpdateCheck(ctx, check); err != nil {
			return nil, err
		}
		return &outcome{status: models.CheckPass}, nil
	}

	stored := doc.Digest
	out, err := s.fail(ctx, doc, check, failParams{
		remarks:   "hash mismatch detected",
		alertType: models.AlertIntegrityFailure,
		severity:  models.SeverityCritical,
		message: fmt.Sprintf("CRITICAL: Document integrity compromised for %s. Hash mismatch detected. Possible tampering.",
			doc.DocNumber),
		reason:   "Hash mismatch",
		stored:   &stored,
		computed: &computed,
	})
	if err != nil {
		return nil, err
	}
	entry := &ledgermodels.Entry{
		DocumentID: doc.ID,
		UserID:     doc.OwnerID,
		Org:        doc.Org,
		Kind:       ledgermodels.EventIntegrityFailed,
		Description: fmt.Sprintf("Integrity check failed for document %s. Stored hash: %s, computed hash: %s",
			doc.DocNumber, doc.Digest.Short(), computed.Short()),
		HashBefore: &stored,
		HashAfter:  &computed,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, err
	}
	s.log.WarnContext(ctx, "document integrity compromised",
		"document_id", doc.ID.String(),
		"doc_number", doc.DocNumber,
		"stored_hash", doc.Digest.Short(),
		"computed_hash", computed.Short(),
	)
	return out, nil
}

type failParams struct {
	remarks   string
	alertType models.AlertType
	severity  models.Severity
	message   string
	reason    string
	stored    *id.Digest
	computed  *id.Digest
}

func (s *Service) fail(ctx context.Context, doc *documentmodels.Document, check *models.Check, p failParams) (*outcome, error) {
	now := time.Now()
	check.Status = models.CheckFail
	check.Remarks = p.remarks
	check.CheckedAt = &now
	if err := s.checks.UpdateCheck(ctx, check); err != nil {
		return nil, err
	}
	docID := doc.ID
	checkID := check.ID
	alert := &models.Alert{
		Type:       p.alertType,
		Severity:   p.severity,
		DocumentID: &docID,
		CheckID:    &checkID,
		Message:    p.message,
	}
	if err := s.checks.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return &outcome{
		status: models.CheckFail,
		detail: models.FailedDocument{
			DocumentID:   doc.ID,
			DocNumber:    doc.DocNumber,
			Reason:       p.reason,
			StoredHash:   p.stored,
			ComputedHash: p.computed,
		},
	}, nil
}

// ListChecks returns verification records, most recent first.
func (s *Service) ListChecks(ctx context.Context, filter models.CheckFilter, page models.Page) ([]models.Check, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid check status filter: "+string(*filter.Status))
	}
	checks, err := s.checks.ListChecks(ctx, filter, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list integrity checks")
	}
	return checks, nil
}

// ListAlerts returns alerts, most recent first.
func (s *Service) ListAlerts(ctx context.Context, filter models.AlertFilter, page models.Page) ([]models.Alert, error) {
	alerts, err := s.checks.ListAlerts(ctx, filter, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return alerts, nil
}

// Acknowledge marks an alert as seen. Re-acknowledging is a no-op that
// keeps the original acknowledger and timestamp.
func (s *Service) Acknowledge(ctx context.Context, alertID id.AlertID, userID id.UserID) (*models.Alert, error) {
	alert, err := s.checks.FindAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "alert not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load alert")
	}
	if alert.Acknowledged {
		return alert, nil
	}
	now := time.Now()
	alert.Acknowledged = true
	alert.AcknowledgedBy = &userID
	alert.AcknowledgedAt = &now
	if err := s.checks.UpdateAlert(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acknowledge alert")
	}
	return alert, nil
}
