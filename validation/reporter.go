// Package validation runs the ordered validator chain over an import
// bundle and accumulates per-entity issues for the persistence gate.
package validation

import (
	"fmt"

	"github.com/teranos/trax/tracker"
)

// Issue is one validation outcome, keyed by the entity it concerns.
type Issue struct {
	Ref      tracker.Ref            `json:"ref"`
	Severity tracker.Severity       `json:"severity"`
	Code     tracker.ValidationCode `json:"code"`
	Message  string                 `json:"message"`
	RuleUID  string                 `json:"ruleUid,omitempty"`
}

// Reporter is the append-only issue accumulator for one validation pass.
// It is created fresh per import call and discarded with the report.
type Reporter struct {
	issues    []Issue
	errorRefs map[tracker.Ref]int
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{
		errorRefs: make(map[tracker.Ref]int),
	}
}

// AddError records a blocking issue for an entity.
func (r *Reporter) AddError(ref tracker.Ref, code tracker.ValidationCode, format string, args ...interface{}) {
	r.add(Issue{
		Ref:      ref,
		Severity: tracker.SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AddWarning records a non-blocking issue for an entity.
func (r *Reporter) AddWarning(ref tracker.Ref, code tracker.ValidationCode, format string, args ...interface{}) {
	r.add(Issue{
		Ref:      ref,
		Severity: tracker.SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AddErrorIf records an error only when condition holds, letting
// validators express guards declaratively.
func (r *Reporter) AddErrorIf(condition bool, ref tracker.Ref, code tracker.ValidationCode, format string, args ...interface{}) {
	if condition {
		r.AddError(ref, code, format, args...)
	}
}

// AddErrorIfFn is AddErrorIf for predicates that are expensive or
// side-effecting; the predicate is evaluated exactly once.
func (r *Reporter) AddErrorIfFn(predicate func() bool, ref tracker.Ref, code tracker.ValidationCode, format string, args ...interface{}) {
	if predicate() {
		r.AddError(ref, code, format, args...)
	}
}

// AddRuleIssues merges rule engine outcomes into the report, preserving
// their severity and rule attribution.
func (r *Reporter) AddRuleIssues(issues []tracker.RuleIssue) {
	for _, issue := range issues {
		r.add(Issue{
			Ref:      issue.Target,
			Severity: issue.Severity,
			Code:     issue.Code,
			Message:  issue.Message,
			RuleUID:  issue.RuleUID,
		})
	}
}

func (r *Reporter) add(issue Issue) {
	r.issues = append(r.issues, issue)
	if issue.Severity == tracker.SeverityError {
		r.errorRefs[issue.Ref]++
	}
}

// HasErrorFor reports whether the entity accumulated at least one error.
// This is the persistence gate's query.
func (r *Reporter) HasErrorFor(ref tracker.Ref) bool {
	return r.errorRefs[ref] > 0
}

// All returns every issue in accumulation order.
func (r *Reporter) All() []Issue {
	return r.issues
}

// Errors returns the blocking issues.
func (r *Reporter) Errors() []Issue {
	var out []Issue
	for _, issue := range r.issues {
		if issue.Severity == tracker.SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns the non-blocking issues.
func (r *Reporter) Warnings() []Issue {
	var out []Issue
	for _, issue := range r.issues {
		if issue.Severity == tracker.SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// IssuesFor returns the issues recorded for one entity.
func (r *Reporter) IssuesFor(ref tracker.Ref) []Issue {
	var out []Issue
	for _, issue := range r.issues {
		if issue.Ref == ref {
			out = append(out, issue)
		}
	}
	return out
}

// ErrorCount returns the number of blocking issues.
func (r *Reporter) ErrorCount() int {
	n := 0
	for _, issue := range r.issues {
		if issue.Severity == tracker.SeverityError {
			n++
		}
	}
	return n
}
