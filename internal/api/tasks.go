package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/womboai/pft-nft-node/internal/reducer"
	"github.com/womboai/pft-nft-node/internal/store"
)

type TasksHandler struct {
	store   store.Store
	reducer *reducer.Reducer
}

func NewTasksHandler(s store.Store, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{store: s, reducer: reducer.New(logger)}
}

// TaskView is the API representation of one reduced task record.
type TaskView struct {
	TaskID    string    `json:"task_id"`
	State     string    `json:"state"`
	StateText string    `json:"state_text,omitempty"`
	StateTime time.Time `json:"state_time,omitempty"`
	Proposal  string    `json:"proposal,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
}

func taskView(rec *reducer.TaskRecord) TaskView {
	return TaskView{
		TaskID:    rec.TaskID,
		State:     string(rec.State),
		StateText: rec.StateText,
		StateTime: rec.StateTime,
		Proposal:  reducer.ProposalBody(rec),
		Degraded:  rec.Degraded,
	}
}

func (h *TasksHandler) reduce(r *http.Request, account string) (map[string]*reducer.TaskRecord, error) {
	evs, err := h.store.AccountEvents(r.Context(), account)
	if err != nil {
		return nil, err
	}
	return h.reducer.Reduce(account, evs), nil
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	records, err := h.reduce(r, account)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var selected []*reducer.TaskRecord
	switch state := r.URL.Query().Get("state"); state {
	case "":
		for _, st := range []reducer.TaskState{
			reducer.StateRequested, reducer.StateProposed, reducer.StateAccepted,
			reducer.StateRefused, reducer.StateOutputSubmitted,
			reducer.StateVerificationPrompted, reducer.StateVerificationResponse,
			reducer.StateRewarded,
		} {
			selected = append(selected, reducer.ByState(records, st)...)
		}
	case "refusable":
		selected = reducer.RefusableTasks(records)
	default:
		selected = reducer.ByState(records, reducer.TaskState(state))
	}

	views := make([]TaskView, 0, len(selected))
	for _, rec := range selected {
		views = append(views, taskView(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	id := chi.URLParam(r, "id")
	records, err := h.reduce(r, account)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	rec, ok := records[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, taskView(rec))
}

func (h *TasksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	records, err := h.reduce(r, account)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reducer.Stats(records))
}

func (h *TasksHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	days := 35
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid days"})
			return
		}
		days = n
	}

	rewards, err := h.store.RewardHistory(r.Context(), account, time.Duration(days)*24*time.Hour)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rewards == nil {
		rewards = []store.RewardEntry{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
