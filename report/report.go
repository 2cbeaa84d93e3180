// Package report defines the typed, stats-bearing outcome of an import
// call. The report always accounts for every payload entity: whatever was
// not created, updated or deleted is counted as ignored and explained by
// the validation report.
package report

import (
	"github.com/teranos/trax/tracker"
	"github.com/teranos/trax/validation"
)

// Stats counts outcomes for one entity kind (or the whole batch).
type Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Ignored int `json:"ignored"`
}

// NewStats derives stats from observed outcomes. Ignored is the payload
// remainder, floored at zero.
func NewStats(created, updated, deleted, payloadCount int) Stats {
	ignored := payloadCount - created - updated - deleted
	if ignored < 0 {
		ignored = 0
	}
	return Stats{Created: created, Updated: updated, Deleted: deleted, Ignored: ignored}
}

// Total returns the number of entities the stats account for.
func (s Stats) Total() int {
	return s.Created + s.Updated + s.Deleted + s.Ignored
}

func (s *Stats) merge(other Stats) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Deleted += other.Deleted
	s.Ignored += other.Ignored
}

// Status is the overall outcome of an import call.
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarning Status = "WARNING"
	StatusError   Status = "ERROR"
)

// TypeReport is the per-kind slice of the import report.
type TypeReport struct {
	Type   tracker.Type       `json:"type"`
	Stats  Stats              `json:"stats"`
	Errors []validation.Issue `json:"errors,omitempty"`
}

// ValidationReport carries every issue of the run, split by severity.
type ValidationReport struct {
	Errors   []validation.Issue `json:"errors,omitempty"`
	Warnings []validation.Issue `json:"warnings,omitempty"`
}

// ErrorsFor returns the blocking issues recorded for one entity.
func (v *ValidationReport) ErrorsFor(ref tracker.Ref) []validation.Issue {
	var out []validation.Issue
	for _, issue := range v.Errors {
		if issue.Ref == ref {
			out = append(out, issue)
		}
	}
	return out
}

// ImportReport is the sole contract the surrounding layers depend on.
type ImportReport struct {
	Status      Status                       `json:"status"`
	Stats       Stats                        `json:"stats"`
	TypeReports map[tracker.Type]*TypeReport `json:"typeReports"`
	Validation  ValidationReport             `json:"validation"`
}

// New assembles the report from per-kind stats and the validation pass.
func New(typeStats map[tracker.Type]Stats, reporter *validation.Reporter) *ImportReport {
	rep := &ImportReport{
		TypeReports: make(map[tracker.Type]*TypeReport, len(typeStats)),
	}

	for _, t := range tracker.Types() {
		stats, ok := typeStats[t]
		if !ok {
			continue
		}
		tr := &TypeReport{Type: t, Stats: stats}
		rep.TypeReports[t] = tr
		rep.Stats.merge(stats)
	}

	for _, issue := range reporter.All() {
		switch issue.Severity {
		case tracker.SeverityError:
			rep.Validation.Errors = append(rep.Validation.Errors, issue)
			if tr, ok := rep.TypeReports[issue.Ref.Type]; ok {
				tr.Errors = append(tr.Errors, issue)
			}
		case tracker.SeverityWarning:
			rep.Validation.Warnings = append(rep.Validation.Warnings, issue)
		}
	}

	switch {
	case len(rep.Validation.Errors) > 0:
		rep.Status = StatusError
	case len(rep.Validation.Warnings) > 0:
		rep.Status = StatusWarning
	default:
		rep.Status = StatusOK
	}
	return rep
}

// TypeReport returns the report slice for one kind, or an empty one.
func (r *ImportReport) TypeReport(t tracker.Type) *TypeReport {
	if tr, ok := r.TypeReports[t]; ok {
		return tr
	}
	return &TypeReport{Type: t}
}
