// Package handler exposes the integrity verification engine. The router
// gates these endpoints to admin and auditor roles.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tradevault/internal/integrity/models"
	"tradevault/internal/integrity/service"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/httputil"
	"tradevault/pkg/requestcontext"
)

// Handler wires integrity endpoints to the verification engine.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs an integrity handler with its dependencies.
func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts integrity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/integrity/verify", h.HandleVerify)
	r.Get("/integrity/checks", h.HandleListChecks)
	r.Get("/integrity/alerts", h.HandleListAlerts)
	r.Post("/integrity/alerts/{alertID}/ack", h.HandleAcknowledge)
}

// HandleVerify handles POST /integrity/verify requests. An empty body or an
// empty document_ids list verifies every registered document.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.Verify(ctx, req.ParsedDocumentIDs())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "integrity verification completed",
		"request_id", requestID,
		"user_id", actor.UserID,
		"total_checked", report.TotalChecked,
		"passed", report.Passed,
		"failed", report.Failed,
	)
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}

// HandleListChecks handles GET /integrity/checks requests.
func (h *Handler) HandleListChecks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requestcontext.Actor(ctx); !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter, page, err := parseCheckQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	checks, err := h.service.ListChecks(ctx, filter, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromChecks(checks))
}

// HandleListAlerts handles GET /integrity/alerts requests.
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requestcontext.Actor(ctx); !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter, page, err := parseAlertQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	alerts, err := h.service.ListAlerts(ctx, filter, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAlerts(alerts))
}

// HandleAcknowledge handles POST /integrity/alerts/{alertID}/ack requests.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid alert id"))
		return
	}

	alert, err := h.service.Acknowledge(ctx, alertID, actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAlert(alert))
}

func parseCheckQuery(r *http.Request) (models.CheckFilter, models.Page, error) {
	var filter models.CheckFilter
	q := r.URL.Query()
	if raw := q.Get("document_id"); raw != "" {
		docID, err := id.ParseDocumentID(raw)
		if err != nil {
			return filter, models.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid document_id filter")
		}
		filter.DocumentID = &docID
	}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseCheckStatus(raw)
		if err != nil {
			return filter, models.Page{}, err
		}
		filter.Status = &status
	}
	page, err := parsePage(r)
	return filter, page, err
}

func parseAlertQuery(r *http.Request) (models.AlertFilter, models.Page, error) {
	var filter models.AlertFilter
	q := r.URL.Query()
	if raw := q.Get("acknowledged"); raw != "" {
		acked, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, models.Page{}, dErrors.New(dErrors.CodeBadRequest, "acknowledged must be a boolean")
		}
		filter.Acknowledged = &acked
	}
	if raw := q.Get("type"); raw != "" {
		alertType := models.AlertType(raw)
		filter.Type = &alertType
	}
	page, err := parsePage(r)
	return filter, page, err
}

func parsePage(r *http.Request) (models.Page, error) {
	var page models.Page
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return page, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		page.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return page, dErrors.New(dErrors.CodeBadRequest, "offset must be a non-negative integer")
		}
		page.Offset = offset
	}
	return page, nil
}
