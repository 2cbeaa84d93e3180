// Package programrule evaluates configured program rules against the
// enrollments and events of an import bundle. Each executor applies one
// action kind and is a pure function of (bundle, target) aside from the
// mutation it reports; executors never perform I/O.
package programrule

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/tracker"
)

// Target is the entity a rule action executes against. Events expose data
// values as fields, enrollments expose attribute values.
type Target interface {
	Ref() tracker.Ref

	// FieldValue returns the current payload value of the target field
	// and whether the field is present at all.
	FieldValue(fieldUID string) (string, bool)

	// SetFieldValue writes the target field, appending when absent.
	SetFieldValue(fieldUID, value string)

	// RemoveFieldValue drops the target field, reporting whether a value
	// was removed.
	RemoveFieldValue(fieldUID string) bool

	// ValueType returns the declared value type of the field, defaulting
	// to TEXT when the metadata is not preheated.
	ValueType(ph *preheat.Preheat, fieldUID string) tracker.ValueType
}

// Executor applies one rule action kind.
type Executor interface {
	// Field returns the target field UID, or "" for actions without one.
	Field() string

	// ExecuteRuleAction evaluates the action against the target,
	// returning the issue to record, or nil.
	ExecuteRuleAction(b *bundle.Bundle, target Target) *tracker.RuleIssue
}

// EventTarget adapts a payload event; rule fields are data elements.
type EventTarget struct {
	Event *tracker.Event
}

func (t EventTarget) Ref() tracker.Ref { return t.Event.Ref() }

func (t EventTarget) FieldValue(fieldUID string) (string, bool) {
	return t.Event.DataValueFor(fieldUID)
}

func (t EventTarget) SetFieldValue(fieldUID, value string) {
	t.Event.SetDataValue(fieldUID, value)
}

func (t EventTarget) RemoveFieldValue(fieldUID string) bool {
	return t.Event.RemoveDataValue(fieldUID)
}

func (t EventTarget) ValueType(ph *preheat.Preheat, fieldUID string) tracker.ValueType {
	if de, ok := ph.DataElement(fieldUID); ok {
		return de.ValueType
	}
	return tracker.ValueTypeText
}

// EnrollmentTarget adapts a payload enrollment; rule fields are tracked
// entity attributes.
type EnrollmentTarget struct {
	Enrollment *tracker.Enrollment
}

func (t EnrollmentTarget) Ref() tracker.Ref { return t.Enrollment.Ref() }

func (t EnrollmentTarget) FieldValue(fieldUID string) (string, bool) {
	return t.Enrollment.AttributeValue(fieldUID)
}

func (t EnrollmentTarget) SetFieldValue(fieldUID, value string) {
	t.Enrollment.SetAttributeValue(fieldUID, value)
}

func (t EnrollmentTarget) RemoveFieldValue(fieldUID string) bool {
	for i := range t.Enrollment.Attributes {
		if t.Enrollment.Attributes[i].Attribute == fieldUID {
			t.Enrollment.Attributes = append(t.Enrollment.Attributes[:i], t.Enrollment.Attributes[i+1:]...)
			return true
		}
	}
	return false
}

func (t EnrollmentTarget) ValueType(ph *preheat.Preheat, fieldUID string) tracker.ValueType {
	if tea, ok := ph.TrackedEntityAttribute(fieldUID); ok {
		return tea.ValueType
	}
	return tracker.ValueTypeText
}

// executorFor maps a configured action to its executor. Unknown action
// kinds return nil and are skipped.
func executorFor(rule tracker.ProgramRule, action tracker.RuleAction) Executor {
	switch action.Type {
	case tracker.RuleActionAssign:
		return AssignValueExecutor{RuleUID: rule.UID, TargetField: action.Field, Value: action.Data}
	case tracker.RuleActionShowError:
		return ShowExecutor{RuleUID: rule.UID, TargetField: action.Field, Content: action.Content, Severity: tracker.SeverityError}
	case tracker.RuleActionShowWarning:
		return ShowExecutor{RuleUID: rule.UID, TargetField: action.Field, Content: action.Content, Severity: tracker.SeverityWarning}
	case tracker.RuleActionSetMandatory:
		return SetMandatoryFieldExecutor{RuleUID: rule.UID, TargetField: action.Field}
	case tracker.RuleActionHideField:
		return HideFieldExecutor{RuleUID: rule.UID, TargetField: action.Field}
	}
	return nil
}
