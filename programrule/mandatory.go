package programrule

import (
	"fmt"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// SetMandatoryFieldExecutor errors when the target field carries no value.
// It runs after any assign executors of higher-priority rules, so a value
// assigned earlier in the same pass satisfies the requirement.
type SetMandatoryFieldExecutor struct {
	RuleUID     string
	TargetField string
}

func (e SetMandatoryFieldExecutor) Field() string { return e.TargetField }

func (e SetMandatoryFieldExecutor) ExecuteRuleAction(_ *bundle.Bundle, target Target) *tracker.RuleIssue {
	if value, ok := target.FieldValue(e.TargetField); ok && value != "" {
		return nil
	}
	return &tracker.RuleIssue{
		RuleUID:  e.RuleUID,
		Severity: tracker.SeverityError,
		Code:     tracker.CodeMandatoryField,
		Message:  fmt.Sprintf("field %s is mandatory but has no value", e.TargetField),
		Target:   target.Ref(),
		Field:    e.TargetField,
	}
}
