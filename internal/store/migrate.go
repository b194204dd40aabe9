package store

import (
	"context"
	"fmt"
)

// schema is the append-only memo cache. Rows mirror ledger transactions and
// are only ever inserted; hash is the natural idempotency key.
const schema = `
CREATE TABLE IF NOT EXISTS ledger_memos (
	hash        TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL,
	account     TEXT NOT NULL,
	destination TEXT NOT NULL,
	memo_data   TEXT NOT NULL,
	memo_format TEXT NOT NULL DEFAULT '',
	amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
	success     BOOLEAN NOT NULL,
	datetime    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS ledger_memos_task_idx ON ledger_memos (task_id, datetime);
CREATE INDEX IF NOT EXISTS ledger_memos_account_idx ON ledger_memos (account, datetime);
CREATE INDEX IF NOT EXISTS ledger_memos_destination_idx ON ledger_memos (destination, datetime);
`

// EnsureSchema creates the memo cache table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
