package programrule

import (
	"fmt"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// AssignValueExecutor writes a rule-computed value into the target field.
// A successful assignment is reported as a warning so operators can see
// the mutation; a refused assignment is an error that blocks the entity.
// Equality against an existing value is checked under the field's
// declared value type, not as raw strings.
type AssignValueExecutor struct {
	RuleUID     string
	TargetField string
	Value       string
}

func (e AssignValueExecutor) Field() string { return e.TargetField }

func (e AssignValueExecutor) ExecuteRuleAction(b *bundle.Bundle, target Target) *tracker.RuleIssue {
	current, present := target.FieldValue(e.TargetField)
	valueType := target.ValueType(b.Preheat, e.TargetField)

	assignable := !present || current == "" ||
		valueType.Equals(current, e.Value) ||
		b.Settings.AllowAssignOverwrite()

	if !assignable {
		return &tracker.RuleIssue{
			RuleUID:  e.RuleUID,
			Severity: tracker.SeverityError,
			Code:     tracker.CodeAssignRefused,
			Message:  fmt.Sprintf("field %s already holds value %q, refusing to assign %q", e.TargetField, current, e.Value),
			Target:   target.Ref(),
			Field:    e.TargetField,
		}
	}

	target.SetFieldValue(e.TargetField, e.Value)
	return &tracker.RuleIssue{
		RuleUID:  e.RuleUID,
		Severity: tracker.SeverityWarning,
		Code:     tracker.CodeAssignApplied,
		Message:  fmt.Sprintf("field %s was assigned value %q by program rule", e.TargetField, e.Value),
		Target:   target.Ref(),
		Field:    e.TargetField,
	}
}
