package api

import (
	"log/slog"
	"net/http"

	"github.com/womboai/pft-nft-node/internal/reducer"
	"github.com/womboai/pft-nft-node/internal/store"
)

type AdminHandler struct {
	store       store.Store
	reducer     *reducer.Reducer
	nodeAccount string
}

func NewAdminHandler(s store.Store, nodeAccount string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: s, reducer: reducer.New(logger), nodeAccount: nodeAccount}
}

// Stats summarizes all tasks the node participates in, keyed off the node
// account rather than a user account.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	evs, err := h.store.AccountEvents(r.Context(), h.nodeAccount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	records := h.reducer.Reduce(h.nodeAccount, evs)
	writeJSON(w, http.StatusOK, reducer.Stats(records))
}

// Degraded lists tasks whose lifecycle events lack a matching proposal, the
// usual sign of a gap in the memo cache.
func (h *AdminHandler) Degraded(w http.ResponseWriter, r *http.Request) {
	evs, err := h.store.AccountEvents(r.Context(), h.nodeAccount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	records := h.reducer.Reduce(h.nodeAccount, evs)

	views := []TaskView{}
	for _, rec := range records {
		if rec.Degraded {
			views = append(views, taskView(rec))
		}
	}
	writeJSON(w, http.StatusOK, views)
}
