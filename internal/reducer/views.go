package reducer

import (
	"sort"

	"github.com/womboai/pft-nft-node/internal/memo"
)

// ByState returns records in the given state, ordered by task id for stable output.
func ByState(records map[string]*TaskRecord, state TaskState) []*TaskRecord {
	var out []*TaskRecord
	for _, rec := range records {
		if rec.State == state {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// PendingProposals returns tasks proposed but not yet accepted or refused.
func PendingProposals(records map[string]*TaskRecord) []*TaskRecord {
	return ByState(records, StateProposed)
}

// RefusableTasks returns tasks in any state the user may still refuse from:
// proposed, accepted, or awaiting verification. Terminal tasks are excluded.
func RefusableTasks(records map[string]*TaskRecord) []*TaskRecord {
	var out []*TaskRecord
	for _, rec := range records {
		if CanTransition(rec.State, StateRefused) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// Statistics summarizes one account's task history.
type Statistics struct {
	Total          int     `json:"total_tasks"`
	Pending        int     `json:"pending_tasks"`
	Accepted       int     `json:"accepted_tasks"`
	Refused        int     `json:"refused_tasks"`
	Rewarded       int     `json:"rewarded_tasks"`
	Degraded       int     `json:"degraded_tasks"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// Stats computes task statistics over a record set. A task counts as accepted
// once it has moved past the proposal stage without being refused.
func Stats(records map[string]*TaskRecord) Statistics {
	var s Statistics
	for _, rec := range records {
		s.Total++
		if rec.Degraded {
			s.Degraded++
		}
		switch rec.State {
		case StateProposed:
			s.Pending++
		case StateRefused:
			s.Refused++
		case StateRewarded:
			s.Rewarded++
			s.Accepted++
		case StateAccepted, StateOutputSubmitted, StateVerificationPrompted, StateVerificationResponse:
			s.Accepted++
		}
	}
	if decided := s.Accepted + s.Refused; decided > 0 {
		s.AcceptanceRate = float64(s.Accepted) / float64(decided)
	}
	return s
}

// ProposalBody returns a record's proposal free text with the stage literal removed.
func ProposalBody(rec *TaskRecord) string {
	if !rec.HasProposal {
		return ""
	}
	return memo.StripStagePrefix(memo.KindProposal, rec.ProposalText)
}
