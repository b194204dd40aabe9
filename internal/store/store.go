package store

import (
	"context"
	"time"

	"github.com/womboai/pft-nft-node/internal/ledger"
)

// RewardEntry is one historical reward payout to an account.
type RewardEntry struct {
	TaskID    string    `json:"task_id"`
	MemoData  string    `json:"memo_data"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the local append-only cache of ledger memo transactions. Rows are
// never updated or deleted; replaying the same events is a no-op.
type Store interface {
	// InsertEvent records an observed transaction. Idempotent on hash.
	InsertEvent(ctx context.Context, ev ledger.Event) error

	// AccountEvents returns every cached transaction where the account is
	// sender or receiver, in ledger-timestamp order.
	AccountEvents(ctx context.Context, account string) ([]ledger.Event, error)

	// FindResponse executes a reconciler response-search descriptor.
	FindResponse(ctx context.Context, q ledger.ResponseQuery) (bool, error)

	// RewardHistory returns rewards paid to an account within the lookback window.
	RewardHistory(ctx context.Context, account string, window time.Duration) ([]RewardEntry, error)

	// TaskEventText returns the memo_data of the latest successful event for
	// a task matching the given response kind, optionally constrained to a
	// destination account. Found is false when no such event exists.
	TaskEventText(ctx context.Context, q TaskEventQuery) (text string, found bool, err error)

	// LatestEventTime returns the newest cached timestamp, the poll cursor.
	LatestEventTime(ctx context.Context) (time.Time, error)

	Close() error
}

// TaskEventQuery selects the latest matching memo text for a task.
type TaskEventQuery struct {
	TaskID      string
	LikePattern string
	Destination string // empty means any
}
