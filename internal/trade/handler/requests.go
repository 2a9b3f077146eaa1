package handler

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradevault/internal/trade/models"
	tradeservice "tradevault/internal/trade/service"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// CreateTradeRequest is the HTTP request body for POST /trades.
type CreateTradeRequest struct {
	SellerID    string `json:"seller_id"`
	SellerOrg   string `json:"seller_org"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`

	parsedSellerID id.UserID
	parsedAmount   decimal.Decimal
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateTradeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	sellerID, err := id.ParseUserID(strings.TrimSpace(r.SellerID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "seller_id is not a valid id")
	}
	r.parsedSellerID = sellerID

	r.SellerOrg = strings.TrimSpace(r.SellerOrg)
	if r.SellerOrg == "" {
		return dErrors.New(dErrors.CodeValidation, "seller_org is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "amount must be a decimal number")
	}
	r.parsedAmount = amount
	return nil
}

// ParsedInput returns the validated trade creation input.
func (r *CreateTradeRequest) ParsedInput() tradeservice.CreateInput {
	return tradeservice.CreateInput{
		SellerID:    r.parsedSellerID,
		SellerOrg:   r.SellerOrg,
		Description: r.Description,
		Amount:      r.parsedAmount,
		Currency:    r.Currency,
	}
}

// TransitionRequest is the HTTP request body for PATCH /trades/{tradeID}/status.
type TransitionRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks,omitempty"`

	parsedStatus models.TradeStatus
}

// Validate validates and parses the request.
func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseTradeStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// ParsedStatus returns the validated target status.
func (r *TransitionRequest) ParsedStatus() models.TradeStatus { return r.parsedStatus }

// AssignBankRequest is the HTTP request body for POST /trades/{tradeID}/bank.
type AssignBankRequest struct {
	BankID string `json:"bank_id"`

	parsedBankID id.UserID
}

// Validate validates and parses the request.
func (r *AssignBankRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	bankID, err := id.ParseUserID(strings.TrimSpace(r.BankID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "bank_id is not a valid id")
	}
	r.parsedBankID = bankID
	return nil
}

// ParsedBankID returns the validated bank user id.
func (r *AssignBankRequest) ParsedBankID() id.UserID { return r.parsedBankID }
