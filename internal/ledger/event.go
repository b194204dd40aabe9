package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/womboai/pft-nft-node/internal/memo"
)

// Event is one observed ledger transaction carrying a task memo. Events are
// immutable once observed: the log is append-only and can be re-fetched from
// scratch at any time, so everything derived from events must be rederivable.
type Event struct {
	Hash        string    `json:"hash"`
	TaskID      string    `json:"task_id"`
	Account     string    `json:"account"`
	Destination string    `json:"destination"`
	MemoData    string    `json:"memo_data"`
	MemoFormat  string    `json:"memo_format"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
}

// Kind classifies the event's memo data.
func (e Event) Kind() memo.EventKind {
	return memo.Classify(e.MemoData)
}

// Tx is an outbound transaction handed to the submission collaborator.
// ID is an idempotency key for the gateway; the ledger assigns the hash.
type Tx struct {
	ID          uuid.UUID `json:"id"`
	Account     string    `json:"account"`
	Destination string    `json:"destination"`
	Memo        memo.Memo `json:"memo"`
	Amount      float64   `json:"amount"`
}

// ResponseQuery describes how to search the event log for a transaction that
// fulfills a request. The reconciler only builds this descriptor; an external
// store executes it.
type ResponseQuery struct {
	Account             string         `json:"account"`
	Destination         string         `json:"destination"`
	TaskID              string         `json:"task_id"`
	RequestTime         time.Time      `json:"request_time"`
	ResponseKind        memo.EventKind `json:"response_kind"`
	RequireAfterRequest bool           `json:"require_after_request"`
}
