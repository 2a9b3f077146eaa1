// Package handler exposes the audit ledger's read surface plus the one
// sanctioned amendment, the hash_before back-fill.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tradevault/internal/ledger/models"
	"tradevault/internal/ledger/service"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/httputil"
	"tradevault/pkg/requestcontext"
)

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger", h.HandleList)
	r.Get("/ledger/stats", h.HandleStats)
	r.Get("/documents/{documentID}/ledger", h.HandleDocumentTrail)
	r.Get("/documents/{documentID}/chain", h.HandleVerifyChain)
}

// RegisterMaintenance mounts operator-only amendment endpoints. Mounted
// behind the admin token gate, separate from user routes.
func (h *Handler) RegisterMaintenance(r chi.Router) {
	r.Post("/ledger/{entryID}/hash-before", h.HandleBackfillHashBefore)
}

// HandleList handles GET /ledger requests: the operational view, most recent
// first, scoped to the caller's organization.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter, page, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.ListForOrg(ctx, actor, filter, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleStats handles GET /ledger/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	stats, err := h.service.Stats(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStats(stats))
}

// HandleDocumentTrail handles GET /documents/{documentID}/ledger requests:
// the canonical chronological audit trail for one document.
func (h *Handler) HandleDocumentTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
		return
	}

	entries, err := h.service.ListForDocument(ctx, actor, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleVerifyChain handles GET /documents/{documentID}/chain requests.
func (h *Handler) HandleVerifyChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
		return
	}

	chainBreak, err := h.service.VerifyChain(ctx, actor, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if chainBreak != nil {
		h.logger.WarnContext(ctx, "ledger chain break detected",
			"request_id", requestcontext.RequestID(ctx),
			"document_id", docID,
			"entry_id", chainBreak.EntryID,
			"position", chainBreak.Position,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, FromChainBreak(chainBreak))
}

// HandleBackfillHashBefore handles POST /ledger/{entryID}/hash-before. This
// amends the most recent entry of a document and only when the field is still
// unset; everything else conflicts.
func (h *Handler) HandleBackfillHashBefore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entryID, err := id.ParseLedgerEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid ledger entry id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[BackfillRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.BackfillHashBefore(ctx, entryID, req.ParsedDigest()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ledger entry hash_before back-filled",
		"request_id", requestID,
		"entry_id", entryID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func parseListQuery(r *http.Request) (models.Filter, models.Page, error) {
	var filter models.Filter
	var page models.Page

	q := r.URL.Query()
	if raw := q.Get("document_id"); raw != "" {
		docID, err := id.ParseDocumentID(raw)
		if err != nil {
			return filter, page, dErrors.New(dErrors.CodeBadRequest, "invalid document_id filter")
		}
		filter.DocumentID = &docID
	}
	if raw := q.Get("event_kind"); raw != "" {
		kind, err := models.ParseEventKind(raw)
		if err != nil {
			return filter, page, err
		}
		filter.Kind = &kind
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, page, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		page.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, page, dErrors.New(dErrors.CodeBadRequest, "offset must be a non-negative integer")
		}
		page.Offset = offset
	}
	return filter, page, nil
}
