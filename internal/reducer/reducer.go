// Package reducer folds an account's raw event history into per-task records.
// The fold is deterministic and idempotent: the ledger is append-only and may
// be re-fetched from scratch at any time, so records are always rederived from
// the full event set rather than patched incrementally.
package reducer

import (
	"log/slog"
	"sort"
	"time"

	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
)

// TaskRecord is the derived view of one task. Field update rules are explicit
// per field: ProposalText is first-write-wins, the State triplet is
// last-write-wins by ledger timestamp.
type TaskRecord struct {
	TaskID       string    `json:"task_id"`
	Owner        string    `json:"owner_account"`
	ProposalText string    `json:"proposal_text,omitempty"`
	HasProposal  bool      `json:"has_proposal"`
	State        TaskState `json:"state"`
	StateText    string    `json:"state_text,omitempty"`
	StateTime    time.Time `json:"state_timestamp"`
	// Degraded marks tasks with lifecycle events but no observed proposal:
	// either a truncated history window or a task id collision. Surfaced,
	// never silently dropped.
	Degraded bool `json:"degraded"`
}

type Reducer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Reducer {
	return &Reducer{logger: logger}
}

// Reduce folds events into a map keyed by task id. Failed transactions and
// events without a recognizable task id are dropped from task accounting;
// unclassifiable memo text is logged and skipped without failing the fold.
func (r *Reducer) Reduce(owner string, events []ledger.Event) map[string]*TaskRecord {
	type classified struct {
		ev    ledger.Event
		kind  memo.EventKind
		order int
	}

	var kept []classified
	for i, ev := range events {
		if !ev.Success {
			continue
		}
		taskID := memo.ExtractTaskID(ev.TaskID)
		if taskID == "" {
			continue
		}
		kind := memo.Classify(ev.MemoData)
		if kind == memo.KindUnknown {
			r.logger.Warn("unclassifiable memo, excluding from task accounting",
				"task_id", taskID, "hash", ev.Hash)
			continue
		}
		ev.TaskID = taskID
		kept = append(kept, classified{ev: ev, kind: kind, order: i})
	}

	// Ledger-timestamp order, ties broken by original log order.
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].ev.Timestamp.Equal(kept[j].ev.Timestamp) {
			return kept[i].ev.Timestamp.Before(kept[j].ev.Timestamp)
		}
		return kept[i].order < kept[j].order
	})

	records := make(map[string]*TaskRecord)
	for _, c := range kept {
		rec, ok := records[c.ev.TaskID]
		if !ok {
			rec = &TaskRecord{
				TaskID: c.ev.TaskID,
				Owner:  owner,
				State:  StateRequested,
			}
			records[c.ev.TaskID] = rec
		}

		switch {
		case c.kind == memo.KindProposal:
			if rec.HasProposal {
				// First proposal wins; repeats indicate a replayed or
				// duplicated generation and only get logged.
				if rec.ProposalText != c.ev.MemoData {
					r.logger.Warn("second proposal for task ignored",
						"task_id", c.ev.TaskID, "hash", c.ev.Hash)
				}
				continue
			}
			rec.ProposalText = c.ev.MemoData
			rec.HasProposal = true
			if rec.State == StateRequested {
				rec.State = StateProposed
				rec.StateText = c.ev.MemoData
				rec.StateTime = c.ev.Timestamp
			}
		case memo.IsLifecycle(c.kind):
			state, _ := StateFor(c.kind)
			// Events arrive sorted, so the newest lifecycle event for the
			// task is always the last one applied.
			if c.ev.Timestamp.Before(rec.StateTime) {
				continue
			}
			rec.State = state
			rec.StateText = c.ev.MemoData
			rec.StateTime = c.ev.Timestamp
		}
	}

	for id, rec := range records {
		if !rec.HasProposal && rec.State != StateRequested && rec.State != StateProposed {
			rec.Degraded = true
			r.logger.Warn("lifecycle events without a proposal, marking degraded",
				"task_id", id, "state", rec.State)
		}
	}

	return records
}
