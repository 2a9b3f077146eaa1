// Package handler wires document registry endpoints to the custody
// coordinator. Every mutation goes through the coordinator so the audit
// ledger is written atomically with the registry change.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradevault/internal/custody"
	documentservice "tradevault/internal/document/service"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/httputil"
	"tradevault/pkg/requestcontext"
)

// Handler wires document endpoints to the custody coordinator and the
// document registry.
type Handler struct {
	custody *custody.Coordinator
	docs    *documentservice.Service
	logger  *slog.Logger
}

// New constructs a document handler with its dependencies.
func New(custody *custody.Coordinator, docs *documentservice.Service, logger *slog.Logger) *Handler {
	return &Handler{custody: custody, docs: docs, logger: logger}
}

// Register mounts document endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.HandleUpload)
	r.Post("/documents/records", h.HandleCreateRecord)
	r.Get("/documents", h.HandleList)
	r.Get("/documents/digest/{digest}", h.HandleLookupByDigest)
	r.Get("/documents/{documentID}", h.HandleGet)
	r.Patch("/documents/{documentID}", h.HandleUpdate)
	r.Delete("/documents/{documentID}", h.HandleDelete)
	r.Post("/documents/{documentID}/verify", h.HandleVerify)
	r.Post("/documents/{documentID}/share", h.HandleShare)
}

// HandleUpload handles POST /documents requests.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.custody.UploadDocument(ctx, actor, req.ParsedContent(), req.ParsedMetadata())
	if err != nil {
		h.logger.WarnContext(ctx, "document upload rejected",
			"request_id", requestID,
			"user_id", actor.UserID,
			"doc_number", req.DocNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document uploaded",
		"request_id", requestID,
		"user_id", actor.UserID,
		"document_id", doc.ID,
		"digest", doc.Digest.Short(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// HandleCreateRecord handles POST /documents/records requests for documents
// whose bytes live outside this system.
func (h *Handler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.custody.CreateDocument(ctx, actor, req.ParsedDigest(), req.Locator, req.ParsedMetadata())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// HandleList handles GET /documents requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	docs, err := h.docs.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocuments(docs))
}

// HandleGet handles GET /documents/{documentID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.docs.Get(ctx, actor, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleLookupByDigest handles GET /documents/digest/{digest} requests. The
// lookup itself is an auditable access and lands in the ledger.
func (h *Handler) HandleLookupByDigest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	digest, err := id.ParseDigest(chi.URLParam(r, "digest"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid digest"))
		return
	}

	doc, err := h.custody.AccessByDigest(ctx, actor, digest)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleUpdate handles PATCH /documents/{documentID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

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

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.custody.UpdateDocument(ctx, actor, docID, req.ParsedContent(), req.ParsedMetadata())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document updated",
		"request_id", requestID,
		"user_id", actor.UserID,
		"document_id", doc.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleDelete handles DELETE /documents/{documentID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.custody.DeleteDocument(ctx, actor, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleVerify handles POST /documents/{documentID}/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

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

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	match, err := h.custody.VerifyBytes(ctx, actor, docID, req.ParsedContent())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Match: match})
}

// HandleShare handles POST /documents/{documentID}/share requests.
func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

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

	req, ok := httputil.DecodeAndPrepare[ShareRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.custody.ShareDocument(ctx, actor, docID, req.Recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}
