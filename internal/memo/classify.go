package memo

import (
	"strings"
	"unicode"
)

// matchRule is one way a memo_data string can indicate an EventKind.
type matchRule struct {
	kind     EventKind
	contains string // normalized literal substring
	trailer  bool   // structured rule: " .. <number>" reward-cap trailer
}

// classifyRules is the ordered rule list. First match wins, so rules are
// most-specific-first: every explicit stage literal is checked before the
// bare " .. <cap>" trailer rule, which otherwise shadows any stage text that
// happens to contain a double dot (rewards and completion justifications
// regularly do). Literals are pre-normalized, so the trailing-space variants
// seen in ledger history all land on the same rule.
var classifyRules = []matchRule{
	{kind: KindRequest, contains: normalizeSpace(RequestPrefix)},
	{kind: KindProposal, contains: normalizeSpace(ProposalPrefix)},
	{kind: KindAcceptance, contains: normalizeSpace(AcceptancePrefix)},
	{kind: KindRefusal, contains: normalizeSpace(RefusalPrefix)},
	{kind: KindTaskOutput, contains: normalizeSpace(TaskOutputPrefix)},
	{kind: KindVerificationPrompt, contains: normalizeSpace(VerificationPromptPrefix)},
	{kind: KindVerificationResponse, contains: normalizeSpace(VerificationResponsePrefix)},
	{kind: KindReward, contains: normalizeSpace(RewardPrefix)},
	{kind: KindImageGen, contains: normalizeSpace(ImageGenPrefix)},
	{kind: KindImageGenResponse, contains: normalizeSpace(ImageGenResponsePrefix)},
	// Legacy proposals were sometimes sent without the PROPOSED PF literal and
	// are recognizable only by their reward-cap trailer.
	{kind: KindProposal, trailer: true},
}

// Classify maps raw memo_data to an EventKind. It is pure and total: it never
// errors and consults no external state. Unmatched text yields KindUnknown.
func Classify(data string) EventKind {
	norm := normalizeSpace(data)
	for _, r := range classifyRules {
		if r.trailer {
			if hasCapTrailer(norm) {
				return r.kind
			}
			continue
		}
		if strings.Contains(norm, r.contains) {
			return r.kind
		}
	}
	return KindUnknown
}

// IsLifecycle reports whether kind advances a task's lifecycle state.
func IsLifecycle(kind EventKind) bool {
	switch kind {
	case KindAcceptance, KindRefusal, KindTaskOutput,
		KindVerificationPrompt, KindVerificationResponse, KindReward:
		return true
	}
	return false
}

// normalizeSpace collapses runs of whitespace to single spaces and trims the
// ends, so incidental trailing-space differences never affect matching.
func normalizeSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// hasCapTrailer reports whether normalized text ends in ".. <number>".
func hasCapTrailer(norm string) bool {
	idx := strings.LastIndex(norm, "..")
	if idx < 0 {
		return false
	}
	raw := strings.TrimSpace(norm[idx+2:])
	if raw == "" {
		return false
	}
	for _, r := range raw {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// LikePattern converts a stage literal into the SQL LIKE pattern used by the
// store when searching for responses, with the whitespace-sensitive tail
// stripped for the same historical-data reason classification normalizes.
func LikePattern(kind EventKind) string {
	p := stagePrefix(kind)
	if p == "" {
		return "%"
	}
	return "%" + strings.TrimSpace(p) + "%"
}
