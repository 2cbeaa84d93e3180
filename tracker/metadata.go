package tracker

import (
	"strconv"
	"strings"
)

// ValueType declares how a data value or attribute value is interpreted.
type ValueType string

const (
	ValueTypeText     ValueType = "TEXT"
	ValueTypeLongText ValueType = "LONG_TEXT"
	ValueTypeInteger  ValueType = "INTEGER"
	ValueTypeNumber   ValueType = "NUMBER"
	ValueTypeBoolean  ValueType = "BOOLEAN"
	ValueTypeDate     ValueType = "DATE"
)

// Equals compares two raw values under the declared type, so that "7" and
// "07" are the same INTEGER and "true" and "TRUE" the same BOOLEAN. Text
// comparison stays case-sensitive. Unparseable values fall back to string
// equality.
func (vt ValueType) Equals(a, b string) bool {
	switch vt {
	case ValueTypeInteger, ValueTypeNumber:
		fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
		fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
		if errA == nil && errB == nil {
			return fa == fb
		}
	case ValueTypeBoolean:
		ba, errA := strconv.ParseBool(strings.ToLower(strings.TrimSpace(a)))
		bb, errB := strconv.ParseBool(strings.ToLower(strings.TrimSpace(b)))
		if errA == nil && errB == nil {
			return ba == bb
		}
	}
	return a == b
}

// Identifiable is the common shape of all metadata objects.
type Identifiable struct {
	UID             string            `json:"uid"`
	Code            string            `json:"code,omitempty"`
	Name            string            `json:"name,omitempty"`
	AttributeValues map[string]string `json:"attributeValues,omitempty"`
}

// IdentifierValue returns the object's value under the given scheme param,
// or "" when the object has no value for it.
func (i Identifiable) IdentifierValue(param IdSchemeParam) string {
	switch param.Scheme {
	case SchemeCode:
		return i.Code
	case SchemeName:
		return i.Name
	case SchemeAttribute:
		return i.AttributeValues[param.AttributeUID]
	default:
		return i.UID
	}
}

// OrganisationUnit is the org unit metadata an import references.
type OrganisationUnit struct {
	Identifiable
}

// TrackedEntityType classifies tracked entities (person, case, ...).
type TrackedEntityType struct {
	Identifiable
}

// Program is a tracker program.
type Program struct {
	Identifiable
	TrackedEntityTypeUID string `json:"trackedEntityType,omitempty"`
}

// ProgramStage is one stage of a program.
type ProgramStage struct {
	Identifiable
	ProgramUID string `json:"program"`
}

// DataElement is the metadata behind an event data value.
type DataElement struct {
	Identifiable
	ValueType ValueType `json:"valueType"`
}

// TrackedEntityAttribute is the metadata behind a tracked entity attribute
// value, including the uniqueness and confidentiality flags the validators
// enforce.
type TrackedEntityAttribute struct {
	Identifiable
	ValueType    ValueType `json:"valueType"`
	Unique       bool      `json:"unique"`
	OrgUnitScope bool      `json:"orgUnitScope"`
	Confidential bool      `json:"confidential"`
}

// CategoryOptionCombo disaggregates event values.
type CategoryOptionCombo struct {
	Identifiable
}

// RelationshipType constrains relationship endpoints.
type RelationshipType struct {
	Identifiable
}

// RuleActionType discriminates program rule actions.
type RuleActionType string

const (
	RuleActionAssign       RuleActionType = "ASSIGN"
	RuleActionShowError    RuleActionType = "SHOWERROR"
	RuleActionShowWarning  RuleActionType = "SHOWWARNING"
	RuleActionSetMandatory RuleActionType = "SETMANDATORYFIELD"
	RuleActionHideField    RuleActionType = "HIDEFIELD"
)

// RuleAction is one configured action of a program rule. Field names the
// target data element or tracked entity attribute UID; Data carries the
// value to assign and Content the operator-facing message.
type RuleAction struct {
	Type    RuleActionType `json:"type"`
	Field   string         `json:"field,omitempty"`
	Data    string         `json:"data,omitempty"`
	Content string         `json:"content,omitempty"`
}

// ProgramRule is a configured rule. Rules for one entity run ordered by
// Priority ascending, ties broken by UID, so later rules observe earlier
// mutations deterministically.
type ProgramRule struct {
	UID        string       `json:"uid"`
	Name       string       `json:"name,omitempty"`
	ProgramUID string       `json:"program"`
	Priority   int          `json:"priority"`
	Actions    []RuleAction `json:"actions"`
}
