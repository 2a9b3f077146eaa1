// Package handler wires trade workflow endpoints to the trade service.
// Status changes route through the custody coordinator so manual moves are
// logged consistently with upload-driven ones.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradevault/internal/custody"
	tradeservice "tradevault/internal/trade/service"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/httputil"
	"tradevault/pkg/requestcontext"
)

// Handler wires trade endpoints to the trade service and custody coordinator.
type Handler struct {
	trades  *tradeservice.Service
	custody *custody.Coordinator
	logger  *slog.Logger
}

// New constructs a trade handler with its dependencies.
func New(trades *tradeservice.Service, custody *custody.Coordinator, logger *slog.Logger) *Handler {
	return &Handler{trades: trades, custody: custody, logger: logger}
}

// Register mounts trade endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/trades", h.HandleCreate)
	r.Get("/trades", h.HandleList)
	r.Get("/trades/{tradeID}", h.HandleGet)
	r.Get("/trades/{tradeID}/history", h.HandleHistory)
	r.Patch("/trades/{tradeID}/status", h.HandleTransition)
	r.Post("/trades/{tradeID}/bank", h.HandleAssignBank)
}

// HandleCreate handles POST /trades requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateTradeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	trade, err := h.trades.Create(ctx, actor, req.ParsedInput())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "trade created",
		"request_id", requestID,
		"user_id", actor.UserID,
		"trade_id", trade.ID,
		"trade_number", trade.TradeNumber,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromTrade(trade))
}

// HandleList handles GET /trades requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	trades, err := h.trades.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrades(trades))
}

// HandleGet handles GET /trades/{tradeID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trade id"))
		return
	}

	trade, err := h.trades.Get(ctx, actor, tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrade(trade))
}

// HandleHistory handles GET /trades/{tradeID}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trade id"))
		return
	}

	history, err := h.trades.History(ctx, actor, tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(history))
}

// HandleTransition handles PATCH /trades/{tradeID}/status requests.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trade id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	trade, err := h.custody.TransitionTrade(ctx, actor, tradeID, req.ParsedStatus(), req.Remarks)
	if err != nil {
		h.logger.WarnContext(ctx, "trade transition rejected",
			"request_id", requestID,
			"user_id", actor.UserID,
			"trade_id", tradeID,
			"to", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrade(trade))
}

// HandleAssignBank handles POST /trades/{tradeID}/bank requests.
func (h *Handler) HandleAssignBank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trade id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[AssignBankRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	trade, err := h.trades.AssignBank(ctx, actor, tradeID, req.ParsedBankID())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrade(trade))
}
