package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/trax/tracker"
)

func teRef(uid string) tracker.Ref {
	return tracker.Ref{Type: tracker.TypeTrackedEntity, UID: uid}
}

func TestReporterAccumulatesAcrossValidators(t *testing.T) {
	r := NewReporter()
	r.AddError(teRef("te1"), tracker.CodeMissingOrgUnit, "org unit missing")
	r.AddError(teRef("te1"), tracker.CodeUnknownAttribute, "attribute %s unknown", "teaX")
	r.AddWarning(teRef("te2"), tracker.CodeAssignApplied, "assigned")

	assert.Len(t, r.All(), 3)
	assert.Len(t, r.Errors(), 2)
	assert.Len(t, r.Warnings(), 1)
	assert.Equal(t, 2, r.ErrorCount())
	assert.Len(t, r.IssuesFor(teRef("te1")), 2)
}

func TestHasErrorForIgnoresWarnings(t *testing.T) {
	r := NewReporter()
	r.AddWarning(teRef("te1"), tracker.CodeAssignApplied, "assigned")
	assert.False(t, r.HasErrorFor(teRef("te1")))

	r.AddError(teRef("te1"), tracker.CodeMissingOrgUnit, "org unit missing")
	assert.True(t, r.HasErrorFor(teRef("te1")))
	assert.False(t, r.HasErrorFor(teRef("te2")))
}

func TestAddErrorIf(t *testing.T) {
	r := NewReporter()
	r.AddErrorIf(false, teRef("te1"), tracker.CodeMissingOrgUnit, "nope")
	r.AddErrorIf(true, teRef("te1"), tracker.CodeMissingOrgUnit, "yes")
	require.Len(t, r.All(), 1)
	assert.Equal(t, "yes", r.All()[0].Message)
}

func TestAddErrorIfFnEvaluatesPredicateOnce(t *testing.T) {
	r := NewReporter()
	calls := 0
	r.AddErrorIfFn(func() bool {
		calls++
		return true
	}, teRef("te1"), tracker.CodeEncryptionStatus, "bad status")

	assert.Equal(t, 1, calls)
	assert.Len(t, r.Errors(), 1)
}

func TestAddRuleIssuesPreservesSeverityAndRule(t *testing.T) {
	r := NewReporter()
	r.AddRuleIssues([]tracker.RuleIssue{
		{RuleUID: "rulA", Severity: tracker.SeverityError, Code: tracker.CodeAssignRefused,
			Message: "refused", Target: teRef("te1")},
		{RuleUID: "rulA", Severity: tracker.SeverityWarning, Code: tracker.CodeAssignApplied,
			Message: "applied", Target: teRef("te2")},
	})

	require.Len(t, r.All(), 2)
	assert.Equal(t, "rulA", r.All()[0].RuleUID)
	assert.True(t, r.HasErrorFor(teRef("te1")))
	assert.False(t, r.HasErrorFor(teRef("te2")))
}
