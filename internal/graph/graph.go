// Package graph holds the static request/response pattern registry. It is
// built once at process start and read-only afterwards, so it can be shared
// freely across goroutines.
package graph

import (
	"fmt"

	"github.com/womboai/pft-nft-node/internal/memo"
)

// Role describes how a pattern participates in an interaction.
type Role string

const (
	RoleRequest    Role = "request"
	RoleResponse   Role = "response"
	RoleStandalone Role = "standalone"
)

// Pattern is one registered interaction pattern.
type Pattern struct {
	ID             string
	Kind           memo.EventKind
	Role           Role
	ValidResponses []memo.EventKind
	// Notify marks patterns whose observation should be published to
	// subscribers (operator surfaces, chat bridges).
	Notify bool
	// RequireAfterRequest constrains response lookups to transactions at or
	// after the request's ledger time.
	RequireAfterRequest bool
	// OrphanOK exempts a response pattern from the reachability check. Used
	// for system responses that no request pattern points at.
	OrphanOK bool
}

// Graph is the immutable registry. Construct with a Builder.
type Graph struct {
	byKind map[memo.EventKind]Pattern
}

// Builder accumulates patterns and validates them on Build.
type Builder struct {
	patterns []Pattern
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Register(p Pattern) *Builder {
	b.patterns = append(b.patterns, p)
	return b
}

// Build validates the registered patterns and freezes them into a Graph.
// Registering two patterns with the same EventKind but different roles is a
// configuration error: downstream dispatch is keyed by kind, and a kind that
// is simultaneously a request and a response cannot be routed.
func (b *Builder) Build() (*Graph, error) {
	byKind := make(map[memo.EventKind]Pattern, len(b.patterns))
	for _, p := range b.patterns {
		if p.ID == "" {
			return nil, fmt.Errorf("pattern for kind %q has no id", p.Kind)
		}
		if existing, ok := byKind[p.Kind]; ok {
			if existing.Role != p.Role {
				return nil, fmt.Errorf("conflicting roles for kind %q: %q registered as %s, %q as %s",
					p.Kind, existing.ID, existing.Role, p.ID, p.Role)
			}
			return nil, fmt.Errorf("duplicate pattern for kind %q: %q and %q", p.Kind, existing.ID, p.ID)
		}
		if p.Role != RoleRequest && len(p.ValidResponses) > 0 {
			return nil, fmt.Errorf("pattern %q: valid responses on non-request role %s", p.ID, p.Role)
		}
		byKind[p.Kind] = p
	}

	g := &Graph{byKind: byKind}
	if err := g.validateReachability(); err != nil {
		return nil, err
	}
	return g, nil
}

// validateReachability checks that every response-role pattern is reachable
// from some request's ValidResponses, unless explicitly marked OrphanOK.
func (g *Graph) validateReachability() error {
	reachable := make(map[memo.EventKind]bool)
	for _, p := range g.byKind {
		if p.Role != RoleRequest {
			continue
		}
		for _, rk := range p.ValidResponses {
			if rp, ok := g.byKind[rk]; !ok {
				return fmt.Errorf("pattern %q expects unregistered response kind %q", p.ID, rk)
			} else if rp.Role != RoleResponse {
				return fmt.Errorf("pattern %q expects response kind %q, registered with role %s", p.ID, rk, rp.Role)
			}
			reachable[rk] = true
		}
	}
	for kind, p := range g.byKind {
		if p.Role == RoleResponse && !reachable[kind] && !p.OrphanOK {
			return fmt.Errorf("response pattern %q (kind %q) is unreachable from any request", p.ID, kind)
		}
	}
	return nil
}

// RoleOf returns the role registered for kind.
func (g *Graph) RoleOf(kind memo.EventKind) (Role, bool) {
	p, ok := g.byKind[kind]
	return p.Role, ok
}

// ExpectedResponses returns the response kinds that fulfill a request of the
// given kind. Empty for non-request roles.
func (g *Graph) ExpectedResponses(kind memo.EventKind) []memo.EventKind {
	p, ok := g.byKind[kind]
	if !ok || p.Role != RoleRequest {
		return nil
	}
	out := make([]memo.EventKind, len(p.ValidResponses))
	copy(out, p.ValidResponses)
	return out
}

// Notify reports whether observations of kind should be published.
func (g *Graph) Notify(kind memo.EventKind) bool {
	return g.byKind[kind].Notify
}

// RequireAfterRequest reports whether responses to kind must postdate the request.
func (g *Graph) RequireAfterRequest(kind memo.EventKind) bool {
	return g.byKind[kind].RequireAfterRequest
}

// PatternID returns the registered id for kind, or "".
func (g *Graph) PatternID(kind memo.EventKind) string {
	return g.byKind[kind].ID
}

// Default builds the standard Post Fiat task workflow graph:
// request -> proposal, task output -> verification prompt,
// verification response -> reward, plus the image generation pair and the
// standalone acceptance/refusal stages.
func Default() (*Graph, error) {
	return NewBuilder().
		Register(Pattern{
			ID:                  "request_post_fiat",
			Kind:                memo.KindRequest,
			Role:                RoleRequest,
			ValidResponses:      []memo.EventKind{memo.KindProposal},
			Notify:              true,
			RequireAfterRequest: true,
		}).
		Register(Pattern{ID: "proposal", Kind: memo.KindProposal, Role: RoleResponse, Notify: true}).
		Register(Pattern{ID: "acceptance", Kind: memo.KindAcceptance, Role: RoleStandalone, Notify: true}).
		Register(Pattern{ID: "refusal", Kind: memo.KindRefusal, Role: RoleStandalone, Notify: true}).
		Register(Pattern{
			ID:                  "task_output",
			Kind:                memo.KindTaskOutput,
			Role:                RoleRequest,
			ValidResponses:      []memo.EventKind{memo.KindVerificationPrompt},
			Notify:              true,
			RequireAfterRequest: true,
		}).
		Register(Pattern{ID: "verification_prompt", Kind: memo.KindVerificationPrompt, Role: RoleResponse, Notify: true}).
		Register(Pattern{
			ID:                  "verification_response",
			Kind:                memo.KindVerificationResponse,
			Role:                RoleRequest,
			ValidResponses:      []memo.EventKind{memo.KindReward},
			Notify:              true,
			RequireAfterRequest: true,
		}).
		Register(Pattern{ID: "reward", Kind: memo.KindReward, Role: RoleResponse, Notify: true}).
		Register(Pattern{
			ID:                  "image_gen",
			Kind:                memo.KindImageGen,
			Role:                RoleRequest,
			ValidResponses:      []memo.EventKind{memo.KindImageGenResponse},
			Notify:              true,
			RequireAfterRequest: true,
		}).
		Register(Pattern{ID: "image_gen_response", Kind: memo.KindImageGenResponse, Role: RoleResponse, Notify: true}).
		Build()
}
