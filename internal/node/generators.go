package node

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/womboai/pft-nft-node/internal/arbiter"
	"github.com/womboai/pft-nft-node/internal/config"
	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
	"github.com/womboai/pft-nft-node/internal/metrics"
	"github.com/womboai/pft-nft-node/internal/reconcile"
	"github.com/womboai/pft-nft-node/internal/store"
)

// DefaultProposalCap is the reward cap attached to generated proposals.
// TODO: price caps per task from the arbiter instead of a flat value.
const DefaultProposalCap = 900

// Generators produce the node's response memos for incoming requests:
// proposals for task requests, verification prompts for completion
// justifications, and image responses for image requests.
type Generators struct {
	rec    *reconcile.Reconciler
	source ContextSource
	ab     arbiter.Client
	images arbiter.ImageClient
	ledger Submitter
	cfg    *config.Config
	logger *slog.Logger
}

// ContextSource supplies prior task events needed to generate a response.
type ContextSource interface {
	TaskEventText(ctx context.Context, q store.TaskEventQuery) (string, bool, error)
}

// Submitter hands a constructed transaction to the ledger collaborator.
type Submitter interface {
	Submit(ctx context.Context, tx ledger.Tx) error
}

func NewGenerators(rec *reconcile.Reconciler, source ContextSource, ab arbiter.Client, images arbiter.ImageClient, sub Submitter, cfg *config.Config, logger *slog.Logger) *Generators {
	return &Generators{
		rec:    rec,
		source: source,
		ab:     ab,
		images: images,
		ledger: sub,
		cfg:    cfg,
		logger: logger,
	}
}

// Proposal responds to a task request with a proposed task and reward cap.
func (g *Generators) Proposal(ctx context.Context, ev ledger.Event) error {
	unlock := g.rec.Lock(ev.TaskID)
	defer unlock()
	if err := g.rec.CheckBeforeEmit(ctx, ev); err != nil {
		return err
	}

	request := memo.StripStagePrefix(memo.KindRequest, ev.MemoData)
	content, err := g.ab.Complete(ctx, taskSystemPrompt, renderTaskUserPrompt(request))
	if err != nil {
		return fmt.Errorf("generate proposal for task %s: %w", ev.TaskID, err)
	}
	text, err := arbiter.ParseTaskText(content)
	if err != nil {
		return fmt.Errorf("parse proposal for task %s: %w", ev.TaskID, err)
	}

	data := memo.FormatProposal(text, DefaultProposalCap)
	return g.emit(ctx, ev, memo.KindProposal, memo.Memo{
		Type:   ev.TaskID,
		Data:   data,
		Format: g.cfg.Ledger.NodeName,
	})
}

// VerificationPrompt responds to a completion justification with a question
// the user must answer to prove the work was done.
func (g *Generators) VerificationPrompt(ctx context.Context, ev ledger.Event) error {
	unlock := g.rec.Lock(ev.TaskID)
	defer unlock()
	if err := g.rec.CheckBeforeEmit(ctx, ev); err != nil {
		return err
	}

	proposal, found, err := g.source.TaskEventText(ctx, store.TaskEventQuery{
		TaskID:      ev.TaskID,
		LikePattern: memo.LikePattern(memo.KindProposal),
	})
	if err != nil {
		return fmt.Errorf("load proposal for task %s: %w", ev.TaskID, err)
	}
	if !found {
		return fmt.Errorf("no proposal on record for task %s", ev.TaskID)
	}

	justification := memo.StripStagePrefix(memo.KindTaskOutput, ev.MemoData)
	content, err := g.ab.Complete(ctx, verificationSystemPrompt, renderVerificationUserPrompt(proposal, justification))
	if err != nil {
		return fmt.Errorf("generate verification prompt for task %s: %w", ev.TaskID, err)
	}
	question, err := arbiter.ParseVerifyingQuestion(content)
	if err != nil {
		return fmt.Errorf("parse verification prompt for task %s: %w", ev.TaskID, err)
	}

	return g.emit(ctx, ev, memo.KindVerificationPrompt,
		memo.Build(ev.TaskID, memo.KindVerificationPrompt, question, g.cfg.Ledger.NodeName))
}

// ImageResponse responds to an image generation request with the URL of the
// generated image.
func (g *Generators) ImageResponse(ctx context.Context, ev ledger.Event) error {
	unlock := g.rec.Lock(ev.TaskID)
	defer unlock()
	if err := g.rec.CheckBeforeEmit(ctx, ev); err != nil {
		return err
	}

	prompt := memo.StripStagePrefix(memo.KindImageGen, ev.MemoData)
	url, err := g.images.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate image for task %s: %w", ev.TaskID, err)
	}

	return g.emit(ctx, ev, memo.KindImageGenResponse,
		memo.Build(ev.TaskID, memo.KindImageGenResponse, " "+url, g.cfg.Ledger.NodeName))
}

func (g *Generators) emit(ctx context.Context, req ledger.Event, kind memo.EventKind, m memo.Memo) error {
	tx := ledger.Tx{
		ID:          uuid.New(),
		Account:     g.cfg.Ledger.NodeAccount,
		Destination: req.Account,
		Memo:        m,
		Amount:      1,
	}
	if err := g.ledger.Submit(ctx, tx); err != nil {
		return fmt.Errorf("submit %s for task %s: %w", kind, req.TaskID, err)
	}
	metrics.IncResponseEmitted(kind)
	g.logger.Info("response emitted", "task_id", req.TaskID, "kind", kind, "destination", req.Account)
	return nil
}
