package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/trax/tracker"
	"github.com/teranos/trax/validation"
)

func TestNewStatsDerivesIgnored(t *testing.T) {
	s := NewStats(3, 2, 1, 10)
	assert.Equal(t, 4, s.Ignored)
	assert.Equal(t, 10, s.Total())
}

func TestNewStatsFloorsIgnoredAtZero(t *testing.T) {
	s := NewStats(5, 5, 5, 10)
	assert.Equal(t, 0, s.Ignored)
}

func TestReportAccountsForEveryEntity(t *testing.T) {
	// 10 tracked entities, 2 rejected; 8 enrollments, all persisted.
	reporter := validation.NewReporter()
	reporter.AddError(tracker.Ref{Type: tracker.TypeTrackedEntity, UID: "te00000001x"},
		tracker.CodeMissingOrgUnit, "org unit missing")
	reporter.AddError(tracker.Ref{Type: tracker.TypeTrackedEntity, UID: "te00000002x"},
		tracker.CodeUnknownAttribute, "attribute missing")

	rep := New(map[tracker.Type]Stats{
		tracker.TypeTrackedEntity: NewStats(8, 0, 0, 10),
		tracker.TypeEnrollment:    NewStats(5, 3, 0, 8),
	}, reporter)

	assert.Equal(t, StatusError, rep.Status)
	assert.Equal(t, 13, rep.Stats.Created)
	assert.Equal(t, 3, rep.Stats.Updated)
	assert.Equal(t, 2, rep.Stats.Ignored)
	assert.Equal(t, 18, rep.Stats.Total())

	te := rep.TypeReport(tracker.TypeTrackedEntity)
	require.NotNil(t, te)
	assert.Equal(t, 2, te.Stats.Ignored)
	assert.Len(t, te.Errors, 2)

	enr := rep.TypeReport(tracker.TypeEnrollment)
	assert.Empty(t, enr.Errors)
	assert.Equal(t, 0, enr.Stats.Ignored)
}

func TestReportStatusFollowsWorstIssue(t *testing.T) {
	reporter := validation.NewReporter()
	rep := New(map[tracker.Type]Stats{
		tracker.TypeEvent: NewStats(1, 0, 0, 1),
	}, reporter)
	assert.Equal(t, StatusOK, rep.Status)

	reporter.AddWarning(tracker.Ref{Type: tracker.TypeEvent, UID: "ev00000001x"},
		tracker.CodeAssignApplied, "value assigned")
	rep = New(map[tracker.Type]Stats{
		tracker.TypeEvent: NewStats(1, 0, 0, 1),
	}, reporter)
	assert.Equal(t, StatusWarning, rep.Status)
	assert.Len(t, rep.Validation.Warnings, 1)
	assert.Empty(t, rep.TypeReport(tracker.TypeEvent).Errors)
}

func TestErrorsForFiltersByRef(t *testing.T) {
	reporter := validation.NewReporter()
	ref := tracker.Ref{Type: tracker.TypeEnrollment, UID: "en00000001x"}
	reporter.AddError(ref, tracker.CodeMissingProgram, "program missing")
	reporter.AddError(tracker.Ref{Type: tracker.TypeEnrollment, UID: "en00000002x"},
		tracker.CodeMissingProgram, "program missing")

	rep := New(map[tracker.Type]Stats{
		tracker.TypeEnrollment: NewStats(0, 0, 0, 2),
	}, reporter)

	issues := rep.Validation.ErrorsFor(ref)
	require.Len(t, issues, 1)
	assert.Equal(t, ref, issues[0].Ref)
}

func TestTypeReportForAbsentKindIsEmpty(t *testing.T) {
	rep := New(nil, validation.NewReporter())
	tr := rep.TypeReport(tracker.TypeRelationship)
	require.NotNil(t, tr)
	assert.Equal(t, Stats{}, tr.Stats)
}
