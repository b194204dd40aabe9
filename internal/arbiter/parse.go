package arbiter

import (
	"fmt"
	"strconv"
	"strings"
)

// Arbitration responses use a pipe-table convention; the fields we act on are
// the "| Total PFT Rewarded |" and "| Summary Judgment |" rows.
const (
	rewardMarker   = "| Total PFT Rewarded |"
	summaryMarker  = "| Summary Judgment |"
	taskMarker     = "| Final Output |"
	questionMarker = "| Verifying Question |"
)

// ParseReward extracts the raw reward number from arbitration content.
// The value is untrusted: callers clamp it before use.
func ParseReward(content string) (float64, error) {
	idx := strings.LastIndex(content, rewardMarker)
	if idx < 0 {
		return 0, fmt.Errorf("no reward row in arbitration content")
	}
	raw := content[idx+len(rewardMarker):]
	raw = strings.TrimSpace(strings.ReplaceAll(firstLine(raw), "|", ""))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse reward value %q: %w", raw, err)
	}
	return value, nil
}

// ParseSummary extracts the summary judgment text from arbitration content.
func ParseSummary(content string) (string, error) {
	idx := strings.LastIndex(content, summaryMarker)
	if idx < 0 {
		return "", fmt.Errorf("no summary row in arbitration content")
	}
	rest := content[idx+len(summaryMarker):]
	if cut := strings.Index(rest, "|"); cut >= 0 {
		rest = rest[:cut]
	}
	summary := strings.TrimSpace(rest)
	if summary == "" {
		return "", fmt.Errorf("empty summary judgment")
	}
	return summary, nil
}

// ParseTaskText extracts the proposed task text from a task generation
// completion's "| Final Output |" row.
func ParseTaskText(content string) (string, error) {
	return parseRow(content, taskMarker)
}

// ParseVerifyingQuestion extracts the verification question from a prompt
// generation completion's "| Verifying Question |" row.
func ParseVerifyingQuestion(content string) (string, error) {
	return parseRow(content, questionMarker)
}

func parseRow(content, marker string) (string, error) {
	idx := strings.LastIndex(content, marker)
	if idx < 0 {
		return "", fmt.Errorf("no %q row in arbitration content", strings.Trim(marker, "| "))
	}
	rest := content[idx+len(marker):]
	if cut := strings.Index(rest, "|"); cut >= 0 {
		rest = rest[:cut]
	}
	value := strings.TrimSpace(rest)
	if value == "" {
		return "", fmt.Errorf("empty %q row", strings.Trim(marker, "| "))
	}
	return value, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
