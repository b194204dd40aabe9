package memo

import (
	"strings"
	"testing"
	"time"
)

func TestTaskIDFormat(t *testing.T) {
	now := time.Date(2024, 3, 20, 14, 30, 45, 0, time.UTC)
	id := NewTaskID(now)

	if !strings.HasPrefix(id, "2024-03-20_14:30__") {
		t.Errorf("unexpected id prefix: %q", id)
	}
	if !IsTaskID(id) {
		t.Errorf("generated id %q does not match the task id pattern", id)
	}
}

func TestTaskIDSuffixVaries(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[NewTaskID(now)] = true
	}
	if len(seen) < 2 {
		t.Error("expected varying suffixes for ids generated in the same minute")
	}
}

func TestExtractTaskID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-20_14:30", "2024-03-20_14:30"},
		{"2024-03-20_14:30__AB3X", "2024-03-20_14:30__AB3X"},
		{"prefix 2024-03-20_14:30__AB3X suffix", "2024-03-20_14:30__AB3X"},
		{"no id here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractTaskID(tt.in); got != tt.want {
			t.Errorf("ExtractTaskID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProposalRewardCap(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cap, err := ProposalRewardCap("PROPOSED PF ___ do X .. 500")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cap != 500 {
			t.Errorf("cap = %f, want 500", cap)
		}
	})

	t.Run("last separator wins", func(t *testing.T) {
		cap, err := ProposalRewardCap("PROPOSED PF ___ step 1 .. step 2 .. 75")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cap != 75 {
			t.Errorf("cap = %f, want 75", cap)
		}
	})

	t.Run("missing trailer", func(t *testing.T) {
		if _, err := ProposalRewardCap("PROPOSED PF ___ do X"); err == nil {
			t.Error("expected error for missing cap trailer")
		}
	})

	t.Run("non numeric trailer", func(t *testing.T) {
		if _, err := ProposalRewardCap("PROPOSED PF ___ do X .. soon"); err == nil {
			t.Error("expected error for non-numeric cap")
		}
	})
}

func TestFormatProposalRoundTrip(t *testing.T) {
	data := FormatProposal("write the report", 500)
	if data != "PROPOSED PF ___ write the report .. 500" {
		t.Errorf("unexpected proposal data: %q", data)
	}
	if Classify(data) != KindProposal {
		t.Error("formatted proposal does not classify as proposal")
	}
	cap, err := ProposalRewardCap(data)
	if err != nil || cap != 500 {
		t.Errorf("cap round trip = %f, %v", cap, err)
	}
}

func TestBuildMemo(t *testing.T) {
	m := Build("2024-03-20_14:30__AB3X", KindReward, "nice work", "postfiatfoundation")
	if m.Type != "2024-03-20_14:30__AB3X" {
		t.Errorf("memo type = %q", m.Type)
	}
	if m.Data != "REWARD RESPONSE __ nice work" {
		t.Errorf("memo data = %q", m.Data)
	}
	if m.Format != "postfiatfoundation" {
		t.Errorf("memo format = %q", m.Format)
	}
}

func TestStripStagePrefix(t *testing.T) {
	tests := []struct {
		kind EventKind
		in   string
		want string
	}{
		{KindProposal, "PROPOSED PF ___ do X .. 500", "do X .. 500"},
		{KindProposal, "PROPOSED PF ___do X", "do X"},
		{KindAcceptance, "ACCEPTANCE REASON ___ sounds good", "sounds good"},
		{KindUnknown, "raw text", "raw text"},
	}
	for _, tt := range tests {
		if got := StripStagePrefix(tt.kind, tt.in); got != tt.want {
			t.Errorf("StripStagePrefix(%q, %q) = %q, want %q", tt.kind, tt.in, got, tt.want)
		}
	}
}
