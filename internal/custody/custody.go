// Package custody coordinates the document registry, the trade workflow,
// and the audit ledger. Registry and workflow services describe what
// happened; this layer decides what the ledger records and makes each
// mutation-plus-append atomic.
package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	documentmodels "tradevault/internal/document/models"
	documentservice "tradevault/internal/document/service"
	ledgermodels "tradevault/internal/ledger/models"
	ledgerservice "tradevault/internal/ledger/service"
	trademodels "tradevault/internal/trade/models"
	tradeservice "tradevault/internal/trade/service"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/tx"
)

// Coordinator is the single write path for operations that touch more than
// one context.
type Coordinator struct {
	docs   *documentservice.Service
	ledger *ledgerservice.Service
	trades *tradeservice.Service
	runner tx.Runner
	log    *slog.Logger
}

func New(docs *documentservice.Service, ledger *ledgerservice.Service, trades *tradeservice.Service, runner tx.Runner, log *slog.Logger) (*Coordinator, error) {
	if docs == nil {
		return nil, errors.New("document service is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger service is required")
	}
	if trades == nil {
		return nil, errors.New("trade service is required")
	}
	if runner == nil {
		runner = tx.NoopRunner{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{docs: docs, ledger: ledger, trades: trades, runner: runner, log: log}, nil
}

// UploadDocument registers content, records the UPLOADED entry, and, for
// documents linked to a trade, evaluates the document-driven auto-advance.
// Everything commits together: a failed ledger append rolls the upload back.
func (c *Coordinator) UploadDocument(ctx context.Context, actor id.Actor, content []byte, meta documentmodels.Metadata) (*documentmodels.Document, error) {
	var doc *documentmodels.Document
	err := c.runner.RunInTx(ctx, func(ctx context.Context) error {
		var trade *trademodels.Trade
		if meta.TradeID != nil {
			var err error
			trade, err = c.trades.Get(ctx, actor, *meta.TradeID)
			if err != nil {
				return err
			}
			party := trade.PartyRoleOf(actor)
			if party != trademodels.PartyBuyer && party != trademodels.PartySeller {
				return dErrors.New(dErrors.CodeForbidden, "only trade participants can upload documents to a trade")
			}
		}

		var err error
		doc, err = c.docs.Register(ctx, actor, content, meta)
		if err != nil {
			return err
		}

		digest := doc.Digest
		description := "Document uploaded: " + doc.DocNumber
		if trade != nil {
			description += " for trade " + trade.TradeNumber
		}
		if _, err := c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
			DocumentID:  doc.ID,
			Kind:        ledgermodels.EventUploaded,
			Description: description,
			HashAfter:   &digest,
		}); err != nil {
			return err
		}

		if trade != nil {
			return c.autoAdvance(ctx, actor, doc, trade.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// autoAdvance runs the upload-driven trade transition and records it as a
// TRADE_STATUS_UPDATE, distinct from a manual status change.
func (c *Coordinator) autoAdvance(ctx context.Context, actor id.Actor, doc *documentmodels.Document, tradeID id.TradeID) error {
	_, change, err := c.trades.DocumentUploaded(ctx, actor, tradeID)
	if err != nil {
		return err
	}
	if change == nil || !change.Changed() {
		return nil
	}
	_, err = c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
		DocumentID: doc.ID,
		Kind:       ledgermodels.EventTradeStatusUpdate,
		Description: fmt.Sprintf("Trade %s status auto-updated: %s -> %s",
			change.TradeNumber, change.From, change.To),
	})
	return err
}

// CreateDocument registers a metadata-only record and its CREATED entry.
func (c *Coordinator) CreateDocument(ctx context.Context, actor id.Actor, digest id.Digest, locator string, meta documentmodels.Metadata) (*documentmodels.Document, error) {
	var doc *documentmodels.Document
	err := c.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = c.docs.Create(ctx, actor, digest, locator, meta)
		if err != nil {
			return err
		}
		after := doc.Digest
		_, err = c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
			DocumentID:  doc.ID,
			Kind:        ledgermodels.EventCreated,
			Description: "Document record created: " + doc.DocNumber,
			HashAfter:   &after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument applies a content or metadata update and records the
// MODIFIED entry. When the digest changes, the entry carries both ends of
// the hash transition in a single append; the chain link is known before
// anything is written.
func (c *Coordinator) UpdateDocument(ctx context.Context, actor id.Actor, docID id.DocumentID, newContent []byte, meta *documentmodels.MetadataUpdate) (*documentmodels.Document, error) {
	var doc *documentmodels.Document
	err := c.runner.RunInTx(ctx, func(ctx context.Context) error {
		var change documentmodels.ContentChange
		var err error
		doc, change, err = c.docs.UpdateContent(ctx, actor, docID, newContent, meta)
		if err != nil {
			return err
		}

		in := ledgerservice.AppendInput{
			DocumentID:  doc.ID,
			Kind:        ledgermodels.EventModified,
			Description: "Document updated: " + doc.DocNumber,
		}
		if change.DigestChanged() {
			before, after := change.OldDigest, change.NewDigest
			in.Description = fmt.Sprintf("Document content replaced: %s (%s -> %s)",
				doc.DocNumber, before.Short(), after.Short())
			in.HashBefore = &before
			in.HashAfter = &after
		}
		_, err = c.ledger.Append(ctx, actor, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AccessByDigest resolves a document by content identity and records the
// access.
func (c *Coordinator) AccessByDigest(ctx context.Context, actor id.Actor, digest id.Digest) (*documentmodels.Document, error) {
	doc, err := c.docs.LookupByDigest(ctx, actor, digest)
	if err != nil {
		return nil, err
	}
	if _, err := c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
		DocumentID:  doc.ID,
		Kind:        ledgermodels.EventAccessed,
		Description: "Document accessed by digest lookup",
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// VerifyBytes compares supplied bytes against a document's registered
// identity and records the verification attempt either way.
func (c *Coordinator) VerifyBytes(ctx context.Context, actor id.Actor, docID id.DocumentID, content []byte) (bool, error) {
	doc, err := c.docs.Get(ctx, actor, docID)
	if err != nil {
		return false, err
	}
	computed := id.ComputeDigest(content)
	match := computed == doc.Digest

	result := "match"
	if !match {
		result = "mismatch"
	}
	if _, err := c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
		DocumentID:  doc.ID,
		Kind:        ledgermodels.EventVerified,
		Description: fmt.Sprintf("Document verification: %s (computed %s)", result, computed.Short()),
	}); err != nil {
		return false, err
	}
	return match, nil
}

// ShareDocument records that a document was shared with a recipient. The
// registry does not change; the share itself is the auditable fact.
func (c *Coordinator) ShareDocument(ctx context.Context, actor id.Actor, docID id.DocumentID, recipient string) (*documentmodels.Document, error) {
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "share recipient is required")
	}
	doc, err := c.docs.Get(ctx, actor, docID)
	if err != nil {
		return nil, err
	}
	if _, err := c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
		DocumentID:  doc.ID,
		Kind:        ledgermodels.EventShared,
		Description: "Document shared with " + recipient,
		Metadata:    fmt.Sprintf(`{"recipient":%q}`, recipient),
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument soft-deletes a document and records the deletion. Deleting
// an already-deleted document is a no-op and records nothing.
func (c *Coordinator) DeleteDocument(ctx context.Context, actor id.Actor, docID id.DocumentID) (*documentmodels.Document, error) {
	var doc *documentmodels.Document
	err := c.runner.RunInTx(ctx, func(ctx context.Context) error {
		current, err := c.docs.Get(ctx, actor, docID)
		if err != nil {
			return err
		}
		if current.Deleted {
			doc = current
			return nil
		}
		doc, err = c.docs.Delete(ctx, actor, docID)
		if err != nil {
			return err
		}
		_, err = c.ledger.Append(ctx, actor, ledgerservice.AppendInput{
			DocumentID:  doc.ID,
			Kind:        ledgermodels.EventDeleted,
			Description: "Document deleted: " + doc.DocNumber,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// TransitionTrade applies a manual trade status change. Manual moves are
// recorded in the trade's own status history; only upload-driven advances
// produce document ledger entries.
func (c *Coordinator) TransitionTrade(ctx context.Context, actor id.Actor, tradeID id.TradeID, to trademodels.TradeStatus, remarks string) (*trademodels.Trade, error) {
	trade, change, err := c.trades.Transition(ctx, actor, tradeID, to, remarks)
	if err != nil {
		return nil, err
	}
	c.log.InfoContext(ctx, "trade status changed",
		"trade_id", trade.ID.String(),
		"trade_number", trade.TradeNumber,
		"from", string(change.From),
		"to", string(change.To),
		"user_id", actor.UserID.String(),
	)
	return trade, nil
}
