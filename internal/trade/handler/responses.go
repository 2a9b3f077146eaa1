package handler

import (
	"time"

	"tradevault/internal/trade/models"
)

// TradeResponse is the HTTP representation of a trade.
type TradeResponse struct {
	ID          string     `json:"id"`
	TradeNumber string     `json:"trade_number"`
	BuyerID     string     `json:"buyer_id"`
	BuyerOrg    string     `json:"buyer_org"`
	SellerID    string     `json:"seller_id"`
	SellerOrg   string     `json:"seller_org"`
	BankID      *string    `json:"bank_id,omitempty"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// FromTrade converts a domain trade to an HTTP response.
func FromTrade(t *models.Trade) *TradeResponse {
	resp := &TradeResponse{
		ID:          t.ID.String(),
		TradeNumber: t.TradeNumber,
		BuyerID:     t.BuyerID.String(),
		BuyerOrg:    t.BuyerOrg,
		SellerID:    t.SellerID.String(),
		SellerOrg:   t.SellerOrg,
		Description: t.Description,
		Amount:      t.Amount.String(),
		Currency:    t.Currency,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.BankID != nil {
		bankID := t.BankID.String()
		resp.BankID = &bankID
	}
	return resp
}

// FromTrades converts a trade slice to HTTP responses.
func FromTrades(trades []models.Trade) []*TradeResponse {
	out := make([]*TradeResponse, 0, len(trades))
	for i := range trades {
		out = append(out, FromTrade(&trades[i]))
	}
	return out
}

// HistoryResponse is one status history row.
type HistoryResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	Remarks   string    `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromHistory converts a history slice to HTTP responses.
func FromHistory(history []models.StatusHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, HistoryResponse{
			ID:        h.ID.String(),
			Status:    string(h.Status),
			ChangedBy: h.ChangedBy.String(),
			Remarks:   h.Remarks,
			CreatedAt: h.CreatedAt,
		})
	}
	return out
}
