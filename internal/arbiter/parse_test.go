package arbiter

import "testing"

const sampleArbitration = `Evaluation of the submitted verification.

| Criterion | Assessment |
| Evidence quality | Strong |
| Summary Judgment | Work completed as proposed with solid evidence |
| Total PFT Rewarded | 450 |
`

func TestParseReward(t *testing.T) {
	got, err := ParseReward(sampleArbitration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 450 {
		t.Errorf("reward = %f, want 450", got)
	}
}

func TestParseRewardVariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		wantErr bool
	}{
		{"bare number", "| Total PFT Rewarded | 100", 100, false},
		{"trailing pipe", "| Total PFT Rewarded | 250 |", 250, false},
		{"negative", "| Total PFT Rewarded | -50 |", -50, false},
		{"huge", "| Total PFT Rewarded | 99999 |", 99999, false},
		{"missing row", "no table here", 0, true},
		{"non numeric", "| Total PFT Rewarded | plenty |", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReward(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %f", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("reward = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestParseSummary(t *testing.T) {
	got, err := ParseSummary(sampleArbitration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Work completed as proposed with solid evidence" {
		t.Errorf("summary = %q", got)
	}
}

func TestParseTaskText(t *testing.T) {
	content := `Reasoning about the best next action.
| Final Output | Write a launch checklist for the beta and share it with the group | `
	got, err := ParseTaskText(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Write a launch checklist for the beta and share it with the group" {
		t.Errorf("task text = %q", got)
	}
	if _, err := ParseTaskText("no table"); err == nil {
		t.Error("expected error for missing row")
	}
}

func TestParseVerifyingQuestion(t *testing.T) {
	content := `Selection logic here.
| Verifying Question | What command did you run and what was its output? |`
	got, err := ParseVerifyingQuestion(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "What command did you run and what was its output?" {
		t.Errorf("question = %q", got)
	}
}

func TestParseSummaryMissing(t *testing.T) {
	if _, err := ParseSummary("nothing useful"); err == nil {
		t.Error("expected error for missing summary row")
	}
	if _, err := ParseSummary("| Summary Judgment |   |"); err == nil {
		t.Error("expected error for empty summary")
	}
}
