package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "tradevault/pkg/domain-errors"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  TradeStatus
		party PartyRole
		to    TradeStatus
		want  bool
	}{
		{"seller confirms", StatusInitiated, PartySeller, StatusSellerConfirmed, true},
		{"seller skips straight to documents", StatusInitiated, PartySeller, StatusDocumentsUploaded, true},
		{"seller cancels early", StatusInitiated, PartySeller, StatusCancelled, true},
		{"buyer cancels early", StatusInitiated, PartyBuyer, StatusCancelled, true},
		{"buyer cannot confirm for seller", StatusInitiated, PartyBuyer, StatusSellerConfirmed, false},
		{"buyer cannot jump to documents", StatusInitiated, PartyBuyer, StatusDocumentsUploaded, false},
		{"seller uploads after confirming", StatusSellerConfirmed, PartySeller, StatusDocumentsUploaded, true},
		{"buyer cancels after confirmation", StatusSellerConfirmed, PartyBuyer, StatusCancelled, true},
		{"seller cannot cancel after confirming", StatusSellerConfirmed, PartySeller, StatusCancelled, false},
		{"bank starts review", StatusDocumentsUploaded, PartyBank, StatusBankReviewing, true},
		{"seller re-upload self-transition", StatusDocumentsUploaded, PartySeller, StatusDocumentsUploaded, true},
		{"buyer cannot start review", StatusDocumentsUploaded, PartyBuyer, StatusBankReviewing, false},
		{"bank approves", StatusBankReviewing, PartyBank, StatusBankApproved, true},
		{"bank disputes", StatusBankReviewing, PartyBank, StatusDisputed, true},
		{"seller cannot approve", StatusBankReviewing, PartySeller, StatusBankApproved, false},
		{"bank releases payment", StatusBankApproved, PartyBank, StatusPaymentReleased, true},
		{"buyer completes", StatusPaymentReleased, PartyBuyer, StatusCompleted, true},
		{"seller completes", StatusPaymentReleased, PartySeller, StatusCompleted, true},
		{"bank completes", StatusPaymentReleased, PartyBank, StatusCompleted, true},
		{"admin resumes disputed trade", StatusDisputed, PartyAdmin, StatusBankReviewing, true},
		{"admin cancels disputed trade", StatusDisputed, PartyAdmin, StatusCancelled, true},
		{"bank cannot resolve dispute", StatusDisputed, PartyBank, StatusBankReviewing, false},
		{"nothing leaves COMPLETED", StatusCompleted, PartyAdmin, StatusBankReviewing, false},
		{"nothing leaves CANCELLED", StatusCancelled, PartyAdmin, StatusInitiated, false},
		{"uninvolved party moves nothing", StatusInitiated, PartyNone, StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.party, tt.to))
		})
	}
}

func TestTerminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for status := range validStatuses {
		if status.IsTerminal() {
			assert.Empty(t, transitionTable[status], "terminal status %s must have no outgoing transitions", status)
		}
	}
}

func TestEveryTableStatusIsValid(t *testing.T) {
	for from, byParty := range transitionTable {
		assert.True(t, from.IsValid(), "table key %s", from)
		for party, targets := range byParty {
			assert.NotEqual(t, PartyNone, party)
			for _, to := range targets {
				assert.True(t, to.IsValid(), "table target %s", to)
			}
		}
	}
}

func TestIllegalTransitionErrorNamesAllowedSet(t *testing.T) {
	err := IllegalTransitionError(StatusInitiated, PartyBuyer, StatusDocumentsUploaded)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.Contains(t, err.Error(), "CANCELLED")

	err = IllegalTransitionError(StatusBankReviewing, PartySeller, StatusBankApproved)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.Contains(t, err.Error(), "cannot change status")
}
