package reducer

import "github.com/womboai/pft-nft-node/internal/memo"

// TaskState is the lifecycle stage a task was last observed in.
type TaskState string

const (
	StateRequested            TaskState = "requested"
	StateProposed             TaskState = "proposed"
	StateAccepted             TaskState = "accepted"
	StateRefused              TaskState = "refused"
	StateOutputSubmitted      TaskState = "output_submitted"
	StateVerificationPrompted TaskState = "verification_prompted"
	StateVerificationResponse TaskState = "verification_responded"
	StateRewarded             TaskState = "rewarded"
)

// StateFor maps a lifecycle event kind to the state it produces.
func StateFor(kind memo.EventKind) (TaskState, bool) {
	switch kind {
	case memo.KindProposal:
		return StateProposed, true
	case memo.KindAcceptance:
		return StateAccepted, true
	case memo.KindRefusal:
		return StateRefused, true
	case memo.KindTaskOutput:
		return StateOutputSubmitted, true
	case memo.KindVerificationPrompt:
		return StateVerificationPrompted, true
	case memo.KindVerificationResponse:
		return StateVerificationResponse, true
	case memo.KindReward:
		return StateRewarded, true
	}
	return "", false
}

// transitions is the legal state graph. The reducer itself reports whatever
// stage was last observed regardless of legality; legality checks belong to
// the validation layer in front of response dispatch.
var transitions = map[TaskState][]TaskState{
	StateRequested:            {StateProposed},
	StateProposed:             {StateAccepted, StateRefused},
	StateAccepted:             {StateOutputSubmitted, StateRefused},
	StateOutputSubmitted:      {StateVerificationPrompted, StateRefused},
	StateVerificationPrompted: {StateVerificationResponse, StateRefused},
	StateVerificationResponse: {StateRewarded, StateRefused},
	StateRewarded:             nil,
	StateRefused:              nil,
}

// CanTransition reports whether moving from one state to another is legal.
// A user may refuse at any open stage; rewarded and refused are terminal.
func CanTransition(from, to TaskState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are legal from state.
func IsTerminal(state TaskState) bool {
	return len(transitions[state]) == 0
}
