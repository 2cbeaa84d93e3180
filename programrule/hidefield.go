package programrule

import (
	"fmt"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// HideFieldExecutor removes the value of a hidden field. Removing a value
// the client supplied is surfaced as a warning so the data loss is
// visible in the report; a field with no value yields no issue.
type HideFieldExecutor struct {
	RuleUID     string
	TargetField string
}

func (e HideFieldExecutor) Field() string { return e.TargetField }

func (e HideFieldExecutor) ExecuteRuleAction(_ *bundle.Bundle, target Target) *tracker.RuleIssue {
	if removed := target.RemoveFieldValue(e.TargetField); !removed {
		return nil
	}
	return &tracker.RuleIssue{
		RuleUID:  e.RuleUID,
		Severity: tracker.SeverityWarning,
		Code:     tracker.CodeHiddenFieldValue,
		Message:  fmt.Sprintf("value of hidden field %s was removed", e.TargetField),
		Target:   target.Ref(),
		Field:    e.TargetField,
	}
}
