package reward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/womboai/pft-nft-node/internal/graph"
	"github.com/womboai/pft-nft-node/internal/ledger"
	"github.com/womboai/pft-nft-node/internal/memo"
	"github.com/womboai/pft-nft-node/internal/reconcile"
	"github.com/womboai/pft-nft-node/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend plays both the response log and the ledger submitter so that a
// submission immediately becomes visible to the next reconciliation check.
type fakeBackend struct {
	mu        sync.Mutex
	txs       []ledger.Tx
	submitErr error
	findErr   error
}

func (f *fakeBackend) FindResponse(_ context.Context, q ledger.ResponseQuery) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return false, f.findErr
	}
	for _, tx := range f.txs {
		if tx.Memo.Type == q.TaskID && memo.Classify(tx.Memo.Data) == q.ResponseKind {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) Submit(_ context.Context, tx ledger.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	if f.submitErr != nil {
		return f.submitErr
	}
	return nil
}

func (f *fakeBackend) submitted() []ledger.Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ledger.Tx, len(f.txs))
	copy(out, f.txs)
	return out
}

type fakeSource struct {
	proposal   string
	prompt     string
	history    []store.RewardEntry
	err        error
	noProposal bool
	noPrompt   bool
}

func (f *fakeSource) TaskEventText(_ context.Context, q store.TaskEventQuery) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	switch {
	case strings.Contains(q.LikePattern, "PROPOSED PF"):
		return f.proposal, !f.noProposal, nil
	case strings.Contains(q.LikePattern, "VERIFICATION PROMPT"):
		return f.prompt, !f.noPrompt, nil
	}
	return "", false, nil
}

func (f *fakeSource) RewardHistory(_ context.Context, _ string, _ time.Duration) ([]store.RewardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

type fakeArbiter struct {
	mu       sync.Mutex
	calls    int
	failures int
	content  string
}

func (f *fakeArbiter) Complete(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("gateway timeout")
	}
	return f.content, nil
}

const arbitrationContent = `The work matches the proposal and the evidence is specific.

| Summary Judgment | Completed as proposed with verifiable evidence |
| Total PFT Rewarded | 300 |
`

func verificationEvent(taskID string) ledger.Event {
	return ledger.Event{
		Hash:        "h-" + taskID,
		TaskID:      taskID,
		Account:     "rUserAccount",
		Destination: "rNodeAccount",
		MemoData:    memo.VerificationResponsePrefix + "here is my evidence",
		Timestamp:   time.Date(2024, 3, 22, 10, 0, 0, 0, time.UTC),
		Success:     true,
	}
}

func newTestPipeline(t *testing.T, backend *fakeBackend, source *fakeSource, ab *fakeArbiter, cfg Config) *Pipeline {
	t.Helper()
	g, err := graph.Default()
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	if cfg.NodeAccount == "" {
		cfg.NodeAccount = "rNodeAccount"
	}
	if cfg.NodeName == "" {
		cfg.NodeName = "tasknode"
	}
	rec := reconcile.New(g, backend, discardLogger())
	return NewPipeline(rec, source, ab, backend, cfg, discardLogger())
}

func workingSource() *fakeSource {
	return &fakeSource{
		proposal: memo.ProposalPrefix + "ship the integration .. 400",
		prompt:   memo.VerificationPromptPrefix + "what command proves it works?",
		history: []store.RewardEntry{
			{TaskID: "2024-03-01_09:00__AAAA", MemoData: "REWARD RESPONSE __ solid work", Amount: 120},
		},
	}
}

func TestRespondEmitsReward(t *testing.T) {
	backend := &fakeBackend{}
	ab := &fakeArbiter{content: arbitrationContent}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{})

	ev := verificationEvent("2024-03-20_14:30__AB3X")
	if err := p.Respond(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txs := backend.submitted()
	if len(txs) != 1 {
		t.Fatalf("submitted %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Account != "rNodeAccount" || tx.Destination != "rUserAccount" {
		t.Errorf("tx direction %s -> %s, want node -> user", tx.Account, tx.Destination)
	}
	if tx.Amount != 300 {
		t.Errorf("amount = %f, want 300", tx.Amount)
	}
	if tx.Memo.Type != ev.TaskID {
		t.Errorf("memo type = %q, want task id", tx.Memo.Type)
	}
	want := memo.RewardPrefix + "Completed as proposed with verifiable evidence"
	if tx.Memo.Data != want {
		t.Errorf("memo data = %q, want %q", tx.Memo.Data, want)
	}
}

func TestRespondSkipsExistingReward(t *testing.T) {
	backend := &fakeBackend{}
	ab := &fakeArbiter{content: arbitrationContent}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{})

	ev := verificationEvent("2024-03-20_14:30__DUPE")
	if err := p.Respond(context.Background(), ev); err != nil {
		t.Fatalf("first respond: %v", err)
	}
	err := p.Respond(context.Background(), ev)
	if !errors.Is(err, reconcile.ErrDoubleResponse) {
		t.Fatalf("error = %v, want ErrDoubleResponse", err)
	}
	if got := len(backend.submitted()); got != 1 {
		t.Errorf("submitted %d transactions, want 1", got)
	}
	if ab.calls != 1 {
		t.Errorf("arbiter called %d times, want 1", ab.calls)
	}
}

func TestRespondFailsClosedWhenLogUnavailable(t *testing.T) {
	backend := &fakeBackend{findErr: errors.New("connection refused")}
	ab := &fakeArbiter{content: arbitrationContent}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{})

	err := p.Respond(context.Background(), verificationEvent("2024-03-20_14:30__UNAV"))
	if !errors.Is(err, reconcile.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if got := len(backend.submitted()); got != 0 {
		t.Errorf("submitted %d transactions, want 0", got)
	}
}

func TestRespondMissingContext(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeSource)
	}{
		{"no proposal", func(s *fakeSource) { s.noProposal = true }},
		{"no verification prompt", func(s *fakeSource) { s.noPrompt = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := workingSource()
			tt.mutate(source)
			backend := &fakeBackend{}
			ab := &fakeArbiter{content: arbitrationContent}
			p := newTestPipeline(t, backend, source, ab, Config{})

			err := p.Respond(context.Background(), verificationEvent("2024-03-20_14:30__CTXM"))
			if !errors.Is(err, ErrContextIncomplete) {
				t.Fatalf("error = %v, want ErrContextIncomplete", err)
			}
			if got := len(backend.submitted()); got != 0 {
				t.Errorf("submitted %d transactions, want 0", got)
			}
			if ab.calls != 0 {
				t.Errorf("arbiter called %d times, want 0", ab.calls)
			}
		})
	}
}

func TestRespondRetriesArbiter(t *testing.T) {
	backend := &fakeBackend{}
	ab := &fakeArbiter{content: arbitrationContent, failures: 1}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{ArbiterAttempts: 2})

	if err := p.Respond(context.Background(), verificationEvent("2024-03-20_14:30__RTRY")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ab.calls != 2 {
		t.Errorf("arbiter called %d times, want 2", ab.calls)
	}
	if got := len(backend.submitted()); got != 1 {
		t.Errorf("submitted %d transactions, want 1", got)
	}
}

func TestRespondArbiterExhausted(t *testing.T) {
	backend := &fakeBackend{}
	ab := &fakeArbiter{content: arbitrationContent, failures: 10}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{ArbiterAttempts: 2})

	err := p.Respond(context.Background(), verificationEvent("2024-03-20_14:30__EXHD"))
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if got := len(backend.submitted()); got != 0 {
		t.Errorf("submitted %d transactions, want 0", got)
	}
}

func TestRespondSubmitNotRetried(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("ledger rejected")}
	ab := &fakeArbiter{content: arbitrationContent}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{})

	err := p.Respond(context.Background(), verificationEvent("2024-03-20_14:30__SUBF"))
	if err == nil {
		t.Fatal("expected submit error to surface")
	}
	// Exactly one attempt: the submission may have landed on the ledger even
	// though the call failed, so retrying could double-pay.
	if got := len(backend.submitted()); got != 1 {
		t.Errorf("submit attempted %d times, want 1", got)
	}
}

func TestRespondUnparsableRewardFallsBackToMinimum(t *testing.T) {
	backend := &fakeBackend{}
	ab := &fakeArbiter{content: "| Summary Judgment | Marginal evidence at best |\n| Total PFT Rewarded | unclear |"}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{})

	if err := p.Respond(context.Background(), verificationEvent("2024-03-20_14:30__PMIN")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txs := backend.submitted()
	if len(txs) != 1 {
		t.Fatalf("submitted %d transactions, want 1", len(txs))
	}
	if txs[0].Amount != DefaultMinReward {
		t.Errorf("amount = %f, want minimum %f", txs[0].Amount, DefaultMinReward)
	}
}

func TestRespondConcurrentSingleEmission(t *testing.T) {
	backend := &fakeBackend{}
	ab := &fakeArbiter{content: arbitrationContent}
	p := newTestPipeline(t, backend, workingSource(), ab, Config{})

	ev := verificationEvent("2024-03-20_14:30__RACE")
	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Respond(context.Background(), ev)
		}()
	}
	wg.Wait()

	if got := len(backend.submitted()); got != 1 {
		t.Errorf("submitted %d transactions under concurrency, want exactly 1", got)
	}
}

func TestClamp(t *testing.T) {
	p := newTestPipeline(t, &fakeBackend{}, workingSource(), &fakeArbiter{}, Config{})
	tests := []struct {
		raw  float64
		want float64
	}{
		{300, 300},
		{0, 1},
		{0.4, 1},
		{-50, 50},
		{-5000, 1200},
		{99999, 1200},
		{1, 1},
		{1200, 1200},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g", tt.raw), func(t *testing.T) {
			if got := p.Clamp(tt.raw); got != tt.want {
				t.Errorf("Clamp(%g) = %g, want %g", tt.raw, got, tt.want)
			}
		})
	}
}
