package models

import (
	"fmt"
	"strings"

	dErrors "tradevault/pkg/domain-errors"
)

// transitionTable is the complete workflow definition: for each current
// status, which party roles may move the trade and to which statuses. A pair
// absent from the table is an illegal transition; there is no other rule.
// DOCUMENTS_UPLOADED -> DOCUMENTS_UPLOADED by the seller is the deliberate
// self-transition that absorbs document re-uploads.
var transitionTable = map[TradeStatus]map[PartyRole][]TradeStatus{
	StatusInitiated: {
		PartySeller: {StatusSellerConfirmed, StatusDocumentsUploaded, StatusCancelled},
		PartyBuyer:  {StatusCancelled},
	},
	StatusSellerConfirmed: {
		PartySeller: {StatusDocumentsUploaded},
		PartyBuyer:  {StatusCancelled},
	},
	StatusDocumentsUploaded: {
		PartyBank:   {StatusBankReviewing},
		PartySeller: {StatusDocumentsUploaded},
	},
	StatusBankReviewing: {
		PartyBank: {StatusBankApproved, StatusDisputed},
	},
	StatusBankApproved: {
		PartyBank: {StatusPaymentReleased},
	},
	StatusPaymentReleased: {
		PartyBuyer:  {StatusCompleted},
		PartySeller: {StatusCompleted},
		PartyBank:   {StatusCompleted},
	},
	StatusDisputed: {
		PartyAdmin: {StatusBankReviewing, StatusCancelled},
	},
}

// AllowedNext returns the statuses the given party may move the trade to
// from the given status. Empty for terminal statuses and uninvolved parties.
func AllowedNext(from TradeStatus, party PartyRole) []TradeStatus {
	return transitionTable[from][party]
}

// CanTransition reports whether the table permits from -> to for the party.
func CanTransition(from TradeStatus, party PartyRole, to TradeStatus) bool {
	for _, allowed := range AllowedNext(from, party) {
		if allowed == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError builds the rejection for a move the table does not
// permit, naming the set the party could have chosen.
func IllegalTransitionError(from TradeStatus, party PartyRole, to TradeStatus) error {
	allowed := AllowedNext(from, party)
	if len(allowed) == 0 {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("role %q cannot change status from %s", string(party), from))
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return dErrors.New(dErrors.CodeInvalidTransition,
		fmt.Sprintf("invalid status transition from %s to %s for role %q, allowed: %s",
			from, to, string(party), strings.Join(names, ", ")))
}
