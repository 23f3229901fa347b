package workflow

import (
	"testing"

	"github.com/prodtrace/smartlabel/internal/models"
)

func checksWith(statuses ...models.CheckStatus) []models.QualityCheck {
	checks := make([]models.QualityCheck, len(statuses))
	for i, s := range statuses {
		checks[i] = models.QualityCheck{Status: s}
	}
	return checks
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks []models.QualityCheck
		want   models.WorkflowStatus
	}{
		{"no checks", nil, models.WorkflowPending},
		{"empty slice", []models.QualityCheck{}, models.WorkflowPending},
		{"all passed", checksWith(models.CheckPassed, models.CheckPassed), models.WorkflowCompleted},
		{"single passed", checksWith(models.CheckPassed), models.WorkflowCompleted},
		{"any failed dominates", checksWith(models.CheckPassed, models.CheckFailed, models.CheckPassed), models.WorkflowFailed},
		{"failed beats pending", checksWith(models.CheckPending, models.CheckFailed), models.WorkflowFailed},
		{"pending holds back completion", checksWith(models.CheckPassed, models.CheckPending), models.WorkflowPending},
		{"all pending", checksWith(models.CheckPending, models.CheckPending), models.WorkflowPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.checks); got != tt.want {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveStatusIsPure(t *testing.T) {
	checks := checksWith(models.CheckPassed, models.CheckFailed)
	first := DeriveStatus(checks)
	for i := 0; i < 10; i++ {
		if got := DeriveStatus(checks); got != first {
			t.Fatalf("DeriveStatus not deterministic: got %q then %q", first, got)
		}
	}
	if checks[0].Status != models.CheckPassed || checks[1].Status != models.CheckFailed {
		t.Error("DeriveStatus mutated its input")
	}
}
