package events

import (
	"time"

	"github.com/womboai/pft-nft-node/internal/memo"
)

const (
	SubjectNodeStarted = "pft.node.started"
	SubjectNodeStats   = "pft.node.stats"

	StreamName   = "PFT_TASK_EVENTS"
	StreamMaxAge = "840h" // 35 days, matching the reward history window
)

// SubjectTaskStage addresses one lifecycle stage of one task, e.g.
// "pft.task.2024-03-20_14:30__AB3X.proposal". Task ids never contain dots,
// so they are safe as a single subject token.
func SubjectTaskStage(taskID string, kind memo.EventKind) string {
	return "pft.task." + taskID + "." + string(kind)
}

// TaskStageNotice is published whenever the node observes or emits a
// lifecycle event for a task.
type TaskStageNotice struct {
	TaskID      string    `json:"task_id"`
	Kind        string    `json:"kind"`
	Account     string    `json:"account"`
	Destination string    `json:"destination"`
	Hash        string    `json:"hash,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NodeStatsNotice is a periodic snapshot of workflow counts per state.
type NodeStatsNotice struct {
	Account   string         `json:"account"`
	ByState   map[string]int `json:"by_state"`
	Timestamp time.Time      `json:"timestamp"`
}
