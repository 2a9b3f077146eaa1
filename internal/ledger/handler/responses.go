package handler

import (
	"time"

	"tradevault/internal/ledger/models"
)

// EntryResponse is the HTTP representation of one ledger entry.
type EntryResponse struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	UserID      string    `json:"user_id"`
	Org         string    `json:"org"`
	EventKind   string    `json:"event_kind"`
	Description string    `json:"description"`
	HashBefore  *string   `json:"hash_before,omitempty"`
	HashAfter   *string   `json:"hash_after,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromEntry converts a domain entry to an HTTP response.
func FromEntry(e *models.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:          e.ID.String(),
		DocumentID:  e.DocumentID.String(),
		UserID:      e.UserID.String(),
		Org:         e.Org,
		EventKind:   string(e.Kind),
		Description: e.Description,
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
	if e.HashBefore != nil {
		before := e.HashBefore.String()
		resp.HashBefore = &before
	}
	if e.HashAfter != nil {
		after := e.HashAfter.String()
		resp.HashAfter = &after
	}
	return resp
}

// FromEntries converts an entry slice to HTTP responses.
func FromEntries(entries []models.Entry) []*EntryResponse {
	out := make([]*EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, FromEntry(&entries[i]))
	}
	return out
}

// StatsResponse is the HTTP response for GET /ledger/stats.
type StatsResponse struct {
	TotalEntries int                        `json:"total_entries"`
	CountsByKind map[string]int             `json:"counts_by_kind"`
	Last24hCount int                        `json:"last_24h_count"`
	TopDocuments []DocumentActivityResponse `json:"top_documents"`
}

// DocumentActivityResponse pairs a document with its entry count.
type DocumentActivityResponse struct {
	DocumentID string `json:"document_id"`
	EntryCount int    `json:"entry_count"`
}

// FromStats converts domain stats to an HTTP response.
func FromStats(stats *models.Stats) *StatsResponse {
	counts := make(map[string]int, len(stats.CountsByKind))
	for kind, n := range stats.CountsByKind {
		counts[string(kind)] = n
	}
	top := make([]DocumentActivityResponse, 0, len(stats.TopDocuments))
	for _, activity := range stats.TopDocuments {
		top = append(top, DocumentActivityResponse{
			DocumentID: activity.DocumentID.String(),
			EntryCount: activity.EntryCount,
		})
	}
	return &StatsResponse{
		TotalEntries: stats.TotalEntries,
		CountsByKind: counts,
		Last24hCount: stats.Last24hCount,
		TopDocuments: top,
	}
}

// ChainResponse is the HTTP response for GET /documents/{documentID}/chain.
type ChainResponse struct {
	Intact bool                `json:"intact"`
	Break  *ChainBreakResponse `json:"break,omitempty"`
}

// ChainBreakResponse describes the first broken hash link.
type ChainBreakResponse struct {
	EntryID    string `json:"entry_id"`
	Position   int    `json:"position"`
	HashBefore string `json:"hash_before"`
	PrevAfter  string `json:"prev_after"`
}

// FromChainBreak converts a chain verification result to an HTTP response. A
// nil break means the chain is intact.
func FromChainBreak(b *models.ChainBreak) *ChainResponse {
	if b == nil {
		return &ChainResponse{Intact: true}
	}
	return &ChainResponse{
		Intact: false,
		Break: &ChainBreakResponse{
			EntryID:    b.EntryID.String(),
			Position:   b.Position,
			HashBefore: b.HashBefore.String(),
			PrevAfter:  b.PrevAfter.String(),
		},
	}
}
