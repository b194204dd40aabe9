// Package reconcile decides whether a request memo already has a fulfilling
// response on the ledger. It is the idempotency gate in front of every
// generated response: a request that already has one must never get a second.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/womboai/pft-nft-node/internal/graph"
	"github.com/womboai/pft-nft-node/internal/ledger"
)

var (
	// ErrUnavailable means the log backend could not answer. Callers must
	// fail closed: treat the response as possibly existing and do not act.
	ErrUnavailable = errors.New("response lookup unavailable")

	// ErrNotRequest means the event's kind has no request role in the graph.
	ErrNotRequest = errors.New("event is not a request")

	// ErrDoubleResponse is an invariant violation: an emission was attempted
	// for a request that already has a response. The in-flight operation must
	// abort; nothing may be sent.
	ErrDoubleResponse = errors.New("response already exists for request")
)

// LogQuery executes a ResponseQuery against the event log. Implemented by the
// store; the reconciler itself never talks to storage directly.
type LogQuery interface {
	FindResponse(ctx context.Context, q ledger.ResponseQuery) (bool, error)
}

type Reconciler struct {
	graph  *graph.Graph
	log    LogQuery
	guards *guardSet
	logger *slog.Logger
}

func New(g *graph.Graph, log LogQuery, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		graph:  g,
		log:    log,
		guards: newGuardSet(),
		logger: logger,
	}
}

// BuildQueries returns the response-search descriptors for a request event,
// one per expected response kind. The response travels the opposite direction
// of the request: from the request's destination back to its account.
func (r *Reconciler) BuildQueries(req ledger.Event) ([]ledger.ResponseQuery, error) {
	kind := req.Kind()
	role, ok := r.graph.RoleOf(kind)
	if !ok || role != graph.RoleRequest {
		return nil, fmt.Errorf("%w: kind %q role %q", ErrNotRequest, kind, role)
	}

	expected := r.graph.ExpectedResponses(kind)
	queries := make([]ledger.ResponseQuery, 0, len(expected))
	for _, rk := range expected {
		queries = append(queries, ledger.ResponseQuery{
			Account:             req.Destination,
			Destination:         req.Account,
			TaskID:              req.TaskID,
			RequestTime:         req.Timestamp,
			ResponseKind:        rk,
			RequireAfterRequest: r.graph.RequireAfterRequest(kind),
		})
	}
	return queries, nil
}

// HasResponse reports whether any fulfilling response exists for the request.
// A true result is terminal for the caller: never generate another response.
// A lookup failure returns ErrUnavailable; callers must then behave as if a
// response may exist.
func (r *Reconciler) HasResponse(ctx context.Context, req ledger.Event) (bool, error) {
	queries, err := r.BuildQueries(req)
	if err != nil {
		return false, err
	}

	for _, q := range queries {
		found, err := r.log.FindResponse(ctx, q)
		if err != nil {
			r.logger.Error("response lookup failed, failing closed",
				"task_id", req.TaskID, "response_kind", q.ResponseKind, "error", err)
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// CheckBeforeEmit re-verifies, under the caller's task guard, that no response
// exists. Returns ErrDoubleResponse when one does.
func (r *Reconciler) CheckBeforeEmit(ctx context.Context, req ledger.Event) error {
	has, err := r.HasResponse(ctx, req)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: task %s", ErrDoubleResponse, req.TaskID)
	}
	return nil
}

// Lock serializes check-then-emit for one task id. Different task ids proceed
// concurrently; the same id is single file. Returns the unlock func.
func (r *Reconciler) Lock(taskID string) func() {
	return r.guards.lock(taskID)
}
