package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const eventColumns = `hash, task_id, account, destination, memo_data, memo_format, amount, success, datetime`

func (s *PostgresStore) InsertEvent(ctx context.Context, ev ledger.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_memos (hash, task_id, account, destination, memo_data, memo_format, amount, success, datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (hash) DO NOTHING`,
		ev.Hash, ev.TaskID, ev.Account, ev.Destination, ev.MemoData, ev.MemoFormat,
		ev.Amount, ev.Success, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.Hash, err)
	}
	return nil
}

func (s *PostgresStore) AccountEvents(ctx context.Context, account string) ([]ledger.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM ledger_memos
		WHERE account = $1 OR destination = $1
		ORDER BY datetime ASC`,
		account,
	)
	if err != nil {
		return nil, fmt.Errorf("query account events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) FindResponse(ctx context.Context, q ledger.ResponseQuery) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ledger_memos
			WHERE account = $1
			AND destination = $2
			AND task_id = $3
			AND success
			AND memo_data LIKE $4
			AND ($5::boolean = false OR datetime >= $6)
		)`,
		q.Account, q.Destination, q.TaskID,
		memo.LikePattern(q.ResponseKind),
		q.RequireAfterRequest, q.RequestTime,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find response for task %s: %w", q.TaskID, err)
	}
	return exists, nil
}

func (s *PostgresStore) RewardHistory(ctx context.Context, account string, window time.Duration) ([]RewardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT task_id, memo_data, amount, datetime
		FROM ledger_memos
		WHERE destination = $1
		AND success
		AND memo_data LIKE $2
		AND datetime >= $3
		ORDER BY datetime DESC`,
		account, memo.LikePattern(memo.KindReward), time.Now().Add(-window),
	)
	if err != nil {
		return nil, fmt.Errorf("query reward history: %w", err)
	}
	defer rows.Close()

	var entries []RewardEntry
	for rows.Next() {
		var e RewardEntry
		if err := rows.Scan(&e.TaskID, &e.MemoData, &e.Amount, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reward entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) TaskEventText(ctx context.Context, q TaskEventQuery) (string, bool, error) {
	var text string
	err := s.pool.QueryRow(ctx, `
		SELECT memo_data
		FROM ledger_memos
		WHERE task_id = $1
		AND success
		AND memo_data LIKE $2
		AND ($3 = '' OR destination = $3)
		ORDER BY datetime DESC
		LIMIT 1`,
		q.TaskID, q.LikePattern, q.Destination,
	).Scan(&text)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query task event text: %w", err)
	}
	return text, true, nil
}

func (s *PostgresStore) LatestEventTime(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(datetime) FROM ledger_memos`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest event time: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

func scanEvents(rows pgx.Rows) ([]ledger.Event, error) {
	var events []ledger.Event
	for rows.Next() {
		var ev ledger.Event
		if err := rows.Scan(&ev.Hash, &ev.TaskID, &ev.Account, &ev.Destination,
			&ev.MemoData, &ev.MemoFormat, &ev.Amount, &ev.Success, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
