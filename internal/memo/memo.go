// Package memo defines the Post Fiat memo wire format: the (type, data, format)
// triple attached to every ledger transaction, the task id convention carried in
// memo_type, and the stage literals carried in memo_data.
//
// The literals must stay bit-exact with what is already on the ledger. Matching,
// however, normalizes whitespace first: historical senders were inconsistent
// about trailing spaces on the same stage literal.
package memo

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EventKind is the semantic classification of one ledger memo.
type EventKind string

const (
	KindRequest              EventKind = "request_post_fiat"
	KindProposal             EventKind = "proposal"
	KindAcceptance           EventKind = "acceptance"
	KindRefusal              EventKind = "refusal"
	KindTaskOutput           EventKind = "task_output"
	KindVerificationPrompt   EventKind = "verification_prompt"
	KindVerificationResponse EventKind = "verification_response"
	KindReward               EventKind = "reward"
	KindImageGen             EventKind = "image_gen"
	KindImageGenResponse     EventKind = "image_gen_response"
	KindUnknown              EventKind = "unknown"
)

// Stage literals as they appear in memo_data on the existing network.
// Do not edit: reimplementations must interoperate with ledger history.
const (
	RequestPrefix              = "REQUEST_POST_FIAT ___ "
	ProposalPrefix             = "PROPOSED PF ___ "
	AcceptancePrefix           = "ACCEPTANCE REASON ___ "
	RefusalPrefix              = "REFUSAL REASON ___ "
	TaskOutputPrefix           = "COMPLETION JUSTIFICATION ___ "
	VerificationPromptPrefix   = "VERIFICATION PROMPT ___ "
	VerificationResponsePrefix = "VERIFICATION RESPONSE ___ "
	RewardPrefix               = "REWARD RESPONSE __ "
	ImageGenPrefix             = "GENERATE IMAGE ___"
	ImageGenResponsePrefix     = "IMAGE RESPONSE ___"
)

// ProposalCapSeparator separates the free text of a proposal from its trailing
// numeric reward cap: "do X .. 500".
const ProposalCapSeparator = " .. "

// Memo is the wire triple attached to a ledger transaction.
// Type carries the task id, Data the stage literal plus free text, and
// Format the sender display name.
type Memo struct {
	Type   string `json:"memo_type"`
	Data   string `json:"memo_data"`
	Format string `json:"memo_format"`
}

// Build constructs a memo for a task id, prefixing the body with the stage
// literal for kind. Unknown kinds get no prefix.
func Build(taskID string, kind EventKind, body, senderName string) Memo {
	return Memo{
		Type:   taskID,
		Data:   stagePrefix(kind) + body,
		Format: senderName,
	}
}

func stagePrefix(kind EventKind) string {
	switch kind {
	case KindRequest:
		return RequestPrefix
	case KindProposal:
		return ProposalPrefix
	case KindAcceptance:
		return AcceptancePrefix
	case KindRefusal:
		return RefusalPrefix
	case KindTaskOutput:
		return TaskOutputPrefix
	case KindVerificationPrompt:
		return VerificationPromptPrefix
	case KindVerificationResponse:
		return VerificationResponsePrefix
	case KindReward:
		return RewardPrefix
	case KindImageGen:
		return ImageGenPrefix
	case KindImageGenResponse:
		return ImageGenResponsePrefix
	}
	return ""
}

// taskIDPattern matches YYYY-MM-DD_HH:MM with an optional __XXXX suffix.
var taskIDPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}_\d{2}:\d{2}(?:__[A-Z0-9]{4})?`)

var taskIDExact = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}:\d{2}(?:__[A-Z0-9]{4})?$`)

// IsTaskID reports whether s is exactly a task id.
func IsTaskID(s string) bool {
	return taskIDExact.MatchString(s)
}

// ExtractTaskID returns the first task id token found in s, or "" if none.
// Events whose memo_type carries no recognizable id are dropped from task
// accounting entirely.
func ExtractTaskID(s string) string {
	return taskIDPattern.FindString(s)
}

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTaskID generates a task id for the given time with a random 4-character
// suffix, e.g. "2024-03-20_14:30__AB3X". The suffix keeps ids issued within
// the same minute distinct.
func NewTaskID(now time.Time) string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return now.UTC().Format("2006-01-02_15:04") + "__" + string(b)
}

// ProposalRewardCap extracts the numeric reward cap from proposal text,
// reading the segment after the final ".." separator. Returns an error when
// no parseable cap trails the text.
func ProposalRewardCap(text string) (float64, error) {
	idx := strings.LastIndex(text, "..")
	if idx < 0 {
		return 0, fmt.Errorf("proposal %q has no reward cap trailer", truncate(text, 40))
	}
	raw := strings.TrimSpace(text[idx+2:])
	cap, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse reward cap %q: %w", raw, err)
	}
	return cap, nil
}

// FormatProposal renders proposal memo_data from free text and a reward cap,
// preserving the trailing-cap convention for ledger compatibility.
func FormatProposal(text string, cap float64) string {
	return ProposalPrefix + text + ProposalCapSeparator + strconv.FormatFloat(cap, 'f', -1, 64)
}

// StripStagePrefix removes the stage literal for kind from text, for display.
func StripStagePrefix(kind EventKind, text string) string {
	p := stagePrefix(kind)
	if p == "" {
		return text
	}
	// Normalized comparison tolerates the historical trailing-space variants.
	norm := normalizeSpace(text)
	np := normalizeSpace(p)
	if i := strings.Index(norm, np); i >= 0 {
		return strings.TrimSpace(norm[i+len(np):])
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
