// Package node runs the task node's main loop: polling the ledger gateway for
// new memo transactions, caching them, and dispatching responders for request
// memos that do not yet have a response on the ledger.
package node

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/womboai/pft-nft-node/internal/config"
	"github.com/womboai/pft-nft-node/internal/events"
	"github.com/womboai/pft-nft-node/internal/graph"
	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
	"github.com/womboai/pft-nft-node/internal/metrics"
	"github.com/womboai/pft-nft-node/internal/reconcile"
	"github.com/womboai/pft-nft-node/internal/reducer"
	"github.com/womboai/pft-nft-node/internal/store"
)

// Responder handles one unanswered request event, emitting at most one
// response transaction. Implementations re-check for an existing response
// under the task guard before emitting.
type Responder func(ctx context.Context, ev ledger.Event) error

type Processor struct {
	store      store.Store
	ledger     ledger.Client
	rec        *reconcile.Reconciler
	graph      *graph.Graph
	bus        events.Client
	reducer    *reducer.Reducer
	cfg        *config.Config
	logger     *slog.Logger
	responders map[memo.EventKind]Responder

	cursor time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, lc ledger.Client, rec *reconcile.Reconciler, g *graph.Graph, bus events.Client, cfg *config.Config, logger *slog.Logger) *Processor {
	return &Processor{
		store:      s,
		ledger:     lc,
		rec:        rec,
		graph:      g,
		bus:        bus,
		reducer:    reducer.New(logger),
		cfg:        cfg,
		logger:     logger,
		responders: make(map[memo.EventKind]Responder),
		stopCh:     make(chan struct{}),
	}
}

// RegisterResponder installs the handler for one request kind. Must be called
// before Start.
func (p *Processor) RegisterResponder(kind memo.EventKind, r Responder) {
	p.responders[kind] = r
}

func (p *Processor) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.pollLoop(ctx)
	go p.statsLoop(ctx)
}

func (p *Processor) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Processor) pollLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one ingest-and-respond cycle: fetch new ledger events since the
// cursor, cache them, then dispatch responders for any unanswered requests in
// the cache. Replaying the same events is harmless; the cache insert is
// idempotent and responders reconcile against the ledger before emitting.
func (p *Processor) Poll(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObservePollDuration(time.Since(start)) }()

	if p.cursor.IsZero() {
		if latest, err := p.store.LatestEventTime(ctx); err == nil {
			p.cursor = latest
		}
	}

	evs, err := p.ledger.AccountEvents(ctx, p.cfg.Ledger.NodeAccount, p.cursor)
	if err != nil {
		p.logger.Error("ledger poll failed", "error", err)
		return
	}
	for _, ev := range evs {
		p.ingest(ctx, ev)
	}

	p.respondPending(ctx)
}

func (p *Processor) ingest(ctx context.Context, ev ledger.Event) {
	if err := p.store.InsertEvent(ctx, ev); err != nil {
		p.logger.Error("failed to cache event", "hash", ev.Hash, "error", err)
		return
	}
	if ev.Timestamp.After(p.cursor) {
		p.cursor = ev.Timestamp
	}

	kind := ev.Kind()
	metrics.IncMemoClassified(kind)
	if ev.TaskID != "" && p.graph.Notify(kind) {
		_ = p.bus.Publish(events.SubjectTaskStage(ev.TaskID, kind), events.TaskStageNotice{
			TaskID:      ev.TaskID,
			Kind:        string(kind),
			Account:     ev.Account,
			Destination: ev.Destination,
			Hash:        ev.Hash,
			Amount:      ev.Amount,
			Timestamp:   ev.Timestamp,
		})
	}
}

func (p *Processor) respondPending(ctx context.Context) {
	evs, err := p.store.AccountEvents(ctx, p.cfg.Ledger.NodeAccount)
	if err != nil {
		p.logger.Error("failed to read cached events", "error", err)
		return
	}

	// Distinct task ids run concurrently; the reconciler's task guard
	// serializes work on the same id.
	var wg sync.WaitGroup
	for _, ev := range evs {
		if !ev.Success || ev.TaskID == "" {
			continue
		}
		kind := ev.Kind()
		responder, ok := p.responders[kind]
		if !ok {
			continue
		}
		if role, ok := p.graph.RoleOf(kind); !ok || role != graph.RoleRequest {
			continue
		}

		has, err := p.rec.HasResponse(ctx, ev)
		if err != nil {
			// Fail closed: without a definitive answer, assume a response
			// exists and let the next cycle retry.
			metrics.IncReconcileFailure()
			p.logger.Error("reconciliation failed, skipping", "task_id", ev.TaskID, "kind", kind, "error", err)
			continue
		}
		if has {
			continue
		}

		wg.Add(1)
		go func(ev ledger.Event, kind memo.EventKind) {
			defer wg.Done()
			if err := p.respond(ctx, responder, ev); err != nil {
				p.logger.Warn("responder failed", "task_id", ev.TaskID, "kind", kind, "error", err)
			}
		}(ev, kind)
	}
	wg.Wait()
}

func (p *Processor) respond(ctx context.Context, responder Responder, ev ledger.Event) error {
	err := responder(ctx, ev)
	if err == nil {
		return nil
	}
	// A double response found under the guard is the reconciler doing its
	// job, not a responder failure.
	if errors.Is(err, reconcile.ErrDoubleResponse) {
		p.logger.Info("response already on ledger", "task_id", ev.TaskID)
		return nil
	}
	return err
}

func (p *Processor) statsLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(6 * p.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishStats(ctx)
		}
	}
}

func (p *Processor) publishStats(ctx context.Context) {
	evs, err := p.store.AccountEvents(ctx, p.cfg.Ledger.NodeAccount)
	if err != nil {
		p.logger.Error("failed to read cached events for stats", "error", err)
		return
	}
	records := p.reducer.Reduce(p.cfg.Ledger.NodeAccount, evs)
	byState := make(map[string]int)
	for _, rec := range records {
		byState[string(rec.State)]++
	}
	_ = p.bus.Publish(events.SubjectNodeStats, events.NodeStatsNotice{
		Account:   p.cfg.Ledger.NodeAccount,
		ByState:   byState,
		Timestamp: time.Now().UTC(),
	})
}
