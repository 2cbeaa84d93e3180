package programrule

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// ShowExecutor surfaces a rule-configured message as an error or warning
// without mutating the target.
type ShowExecutor struct {
	RuleUID     string
	TargetField string
	Content     string
	Severity    tracker.Severity
}

func (e ShowExecutor) Field() string { return e.TargetField }

func (e ShowExecutor) ExecuteRuleAction(_ *bundle.Bundle, target Target) *tracker.RuleIssue {
	message := e.Content
	if message == "" {
		message = "generated by program rule"
	}
	return &tracker.RuleIssue{
		RuleUID:  e.RuleUID,
		Severity: e.Severity,
		Code:     tracker.CodeRuleError,
		Message:  message,
		Target:   target.Ref(),
		Field:    e.TargetField,
	}
}
