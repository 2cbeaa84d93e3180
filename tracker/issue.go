package tracker

// Severity grades a rule or validation issue. Errors block persistence of
// the affected entity; warnings are informational only.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// ValidationCode is a stable machine-readable code attached to every issue
// surfaced by the pipeline.
type ValidationCode string

const (
	// Rule engine codes
	CodeRuleError        ValidationCode = "E1300" // show-error / show-warning rule action fired
	CodeMandatoryField   ValidationCode = "E1301" // mandatory field has no value
	CodeHiddenFieldValue ValidationCode = "E1302" // value removed from a hidden field
	CodeAssignRefused    ValidationCode = "E1307" // assign refused, field already holds a different value
	CodeAssignApplied    ValidationCode = "E1308" // assign applied (or value already equal)

	// Validation codes
	CodeDuplicateUID       ValidationCode = "E1002" // duplicate client identifier within the batch
	CodeMissingOrgUnit     ValidationCode = "E1011" // referenced organisation unit not found
	CodeMissingProgram     ValidationCode = "E1012" // referenced program not found
	CodeMissingStage       ValidationCode = "E1013" // referenced program stage not found
	CodeMissingTrackedEnt  ValidationCode = "E1063" // referenced tracked entity not found
	CodeNonUniqueAttribute ValidationCode = "E1064" // unique attribute value collides in scope
	CodeUnknownAttribute   ValidationCode = "E1006" // attribute not found in metadata
	CodeValueTooLong       ValidationCode = "E1077" // attribute value exceeds max length
	CodeEncryptionStatus   ValidationCode = "E1112" // confidential attribute but encryption not OK
	CodeStatusTransition   ValidationCode = "E1343" // illegal status transition on update
	CodeRelationshipEnd    ValidationCode = "E4010" // relationship endpoint missing or unresolvable
	CodeRelationshipType   ValidationCode = "E4009" // relationship type not found
)

// RuleIssue is the outcome of one rule executor against one entity.
type RuleIssue struct {
	RuleUID  string         `json:"ruleUid"`
	Severity Severity       `json:"severity"`
	Code     ValidationCode `json:"code"`
	Message  string         `json:"message"`
	Target   Ref            `json:"target"`
	Field    string         `json:"field,omitempty"`
}

// IsError reports whether the issue blocks persistence of its target.
func (i RuleIssue) IsError() bool {
	return i.Severity == SeverityError
}
