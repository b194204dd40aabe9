// Package reward orchestrates the final stage of the task workflow: a user's
// verification response is arbitrated and paid out with exactly one reward
// transaction. The arbitration call may be retried; the emission never is.
package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/womboai/pft-nft-node/internal/arbiter"
	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
	"github.com/womboai/pft-nft-node/internal/metrics"
	"github.com/womboai/pft-nft-node/internal/reconcile"
	"github.com/womboai/pft-nft-node/internal/store"
)

// Numeric safety bounds for emitted rewards and the history lookback window.
const (
	DefaultMinReward     = 1.0
	DefaultMaxReward     = 1200.0
	DefaultHistoryWindow = 35 * 24 * time.Hour
)

// ErrContextIncomplete means the proposal or verification prompt backing a
// reward could not be found. A missing link in the chain is a hard error:
// the pipeline aborts rather than guessing, and may be retried once the
// missing event is observed.
var ErrContextIncomplete = errors.New("reward context incomplete")

// ContextSource supplies the ledger-derived context for arbitration.
type ContextSource interface {
	TaskEventText(ctx context.Context, q store.TaskEventQuery) (string, bool, error)
	RewardHistory(ctx context.Context, account string, window time.Duration) ([]store.RewardEntry, error)
}

// Submitter hands a constructed transaction to the ledger collaborator.
type Submitter interface {
	Submit(ctx context.Context, tx ledger.Tx) error
}

type Config struct {
	NodeAccount   string
	NodeName      string
	MinReward     float64
	MaxReward     float64
	HistoryWindow time.Duration
	// ArbiterAttempts bounds retries of the arbitration call.
	ArbiterAttempts int
}

type Pipeline struct {
	rec     *reconcile.Reconciler
	source  ContextSource
	arbiter arbiter.Client
	ledger  Submitter
	cfg     Config
	logger  *slog.Logger
}

func NewPipeline(rec *reconcile.Reconciler, source ContextSource, ab arbiter.Client, sub Submitter, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.MinReward <= 0 {
		cfg.MinReward = DefaultMinReward
	}
	if cfg.MaxReward <= 0 {
		cfg.MaxReward = DefaultMaxReward
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.ArbiterAttempts <= 0 {
		cfg.ArbiterAttempts = 3
	}
	return &Pipeline{rec: rec, source: source, arbiter: ab, ledger: sub, cfg: cfg, logger: logger}
}

// Context is everything assembled for one arbitration.
type Context struct {
	TaskID               string
	ProposalText         string
	VerificationPrompt   string
	VerificationResponse string
	RewardHistory        string
	ProposedCap          string
}

// Respond processes one verification-response event end to end. It serializes
// per task id, re-checks for an existing reward under the guard, assembles
// context, arbitrates, clamps, and emits at most one reward transaction.
func (p *Pipeline) Respond(ctx context.Context, ev ledger.Event) error {
	unlock := p.rec.Lock(ev.TaskID)
	defer unlock()

	if err := p.rec.CheckBeforeEmit(ctx, ev); err != nil {
		if errors.Is(err, reconcile.ErrDoubleResponse) {
			p.logger.Info("reward already exists, skipping", "task_id", ev.TaskID)
		}
		return err
	}

	rctx, err := p.assembleContext(ctx, ev)
	if err != nil {
		return err
	}

	amount, summary, err := p.arbitrate(ctx, rctx)
	if err != nil {
		return fmt.Errorf("arbitrate task %s: %w", ev.TaskID, err)
	}
	amount = p.Clamp(amount)

	tx := ledger.Tx{
		ID:          uuid.New(),
		Account:     p.cfg.NodeAccount,
		Destination: ev.Account,
		Memo:        memo.Build(ev.TaskID, memo.KindReward, summary, p.cfg.NodeName),
		Amount:      amount,
	}
	if err := p.ledger.Submit(ctx, tx); err != nil {
		// Deliberately no retry here: the submission may have landed, and a
		// duplicate reward is worse than a delayed one. The next poll cycle
		// re-reconciles and retries only if no reward is on the ledger.
		return fmt.Errorf("submit reward for task %s: %w", ev.TaskID, err)
	}

	metrics.IncRewardEmitted()
	metrics.ObserveRewardAmount(amount)
	p.logger.Info("reward emitted", "task_id", ev.TaskID, "amount", amount, "destination", ev.Account)
	return nil
}

func (p *Pipeline) assembleContext(ctx context.Context, ev ledger.Event) (*Context, error) {
	proposal, found, err := p.source.TaskEventText(ctx, store.TaskEventQuery{
		TaskID:      ev.TaskID,
		LikePattern: memo.LikePattern(memo.KindProposal),
	})
	if err != nil {
		return nil, fmt.Errorf("load proposal for task %s: %w", ev.TaskID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no proposal for task %s", ErrContextIncomplete, ev.TaskID)
	}

	prompt, found, err := p.source.TaskEventText(ctx, store.TaskEventQuery{
		TaskID:      ev.TaskID,
		LikePattern: memo.LikePattern(memo.KindVerificationPrompt),
		Destination: ev.Account,
	})
	if err != nil {
		return nil, fmt.Errorf("load verification prompt for task %s: %w", ev.TaskID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no verification prompt for task %s", ErrContextIncomplete, ev.TaskID)
	}

	history, err := p.source.RewardHistory(ctx, ev.Account, p.cfg.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load reward history for %s: %w", ev.Account, err)
	}
	lines := make([]string, 0, len(history))
	for _, h := range history {
		lines = append(lines, fmt.Sprintf("%s REWARD %g", h.MemoData, h.Amount))
	}

	rctx := &Context{
		TaskID:               ev.TaskID,
		ProposalText:         proposal,
		VerificationPrompt:   prompt,
		VerificationResponse: ev.MemoData,
		RewardHistory:        strings.Join(lines, "\n"),
	}
	if cap, err := memo.ProposalRewardCap(proposal); err == nil {
		rctx.ProposedCap = fmt.Sprintf("%g", cap)
	}
	return rctx, nil
}

// arbitrate calls the external judge with bounded retries and parses the
// result. A reward row that cannot be parsed falls back to the minimum
// rather than failing the payout.
func (p *Pipeline) arbitrate(ctx context.Context, rctx *Context) (float64, string, error) {
	system := strings.ReplaceAll(rewardSystemPrompt, proposedCapPlaceholder, rctx.ProposedCap)
	user := renderRewardUserPrompt(rctx)

	var content string
	var err error
	for attempt := 1; attempt <= p.cfg.ArbiterAttempts; attempt++ {
		content, err = p.arbiter.Complete(ctx, system, user)
		if err == nil {
			break
		}
		p.logger.Warn("arbitration attempt failed", "task_id", rctx.TaskID, "attempt", attempt, "error", err)
		if attempt == p.cfg.ArbiterAttempts {
			return 0, "", err
		}
		select {
		case <-ctx.Done():
			return 0, "", ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	amount, perr := arbiter.ParseReward(content)
	if perr != nil {
		p.logger.Warn("could not parse reward amount, using minimum", "task_id", rctx.TaskID, "error", perr)
		amount = p.cfg.MinReward
	}
	summary, perr := arbiter.ParseSummary(content)
	if perr != nil {
		p.logger.Warn("could not parse summary judgment", "task_id", rctx.TaskID, "error", perr)
		summary = "Summary Judgment"
	}
	return amount, summary, nil
}

// Clamp forces a raw arbitration result into [MinReward, MaxReward]. The
// absolute value is taken first so a sign flip cannot zero out a payout.
func (p *Pipeline) Clamp(raw float64) float64 {
	v := raw
	if v < 0 {
		v = -v
	}
	if v < p.cfg.MinReward {
		return p.cfg.MinReward
	}
	if v > p.cfg.MaxReward {
		return p.cfg.MaxReward
	}
	return v
}
