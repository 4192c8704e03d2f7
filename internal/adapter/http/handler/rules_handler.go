package handler

import (
	"net/http"

	"github.com/iho/journalbot/internal/adapter/http/dto"
	"github.com/iho/journalbot/internal/rulestore"
)

// RulesHandler exposes the rule store.
type RulesHandler struct {
	store *rulestore.Store
}

// NewRulesHandler creates a new RulesHandler.
func NewRulesHandler(store *rulestore.Store) *RulesHandler {
	return &RulesHandler{store: store}
}

// List returns all rules of the current snapshot, ordered by id.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, dto.RulesFromDomain(snap.Rules()))
}

// Reload re-reads the rule file and atomically swaps the snapshot. A
// parse failure leaves the previous snapshot serving.
func (h *RulesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(); err != nil {
		writeError(w, mapDomainError(err), "rule reload failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"rules":  h.store.Snapshot().Len(),
	})
}
