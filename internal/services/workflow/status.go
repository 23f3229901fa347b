package workflow

import "github.com/prodtrace/smartlabel/internal/models"

// DeriveStatus maps a product's quality checks to its workflow status.
// Failure dominates everything else; the conservative default is pending.
// Pure and total: every multiset of check statuses yields a value, and the
// caller persists the result.
func DeriveStatus(checks []models.QualityCheck) models.WorkflowStatus {
	if len(checks) == 0 {
		return models.WorkflowPending
	}

	anyFailed := false
	allPassed := true
	anyPending := false
	for _, c := range checks {
		switch c.Status {
		case models.CheckFailed:
			anyFailed = true
		case models.CheckPending:
			anyPending = true
		}
		if c.Status != models.CheckPassed {
			allPassed = false
		}
	}

	switch {
	case anyFailed:
		return models.WorkflowFailed
	case allPassed:
		return models.WorkflowCompleted
	case anyPending:
		return models.WorkflowPending
	default:
		return models.WorkflowPending
	}
}
