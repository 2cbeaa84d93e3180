package validation

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// StatusValidator rejects illegal lifecycle transitions on updates.
// Creations carry whatever status the client chose; only transitions
// away from a terminal stored state are errors.
type StatusValidator struct{}

func (StatusValidator) Name() string { return "status" }

func (StatusValidator) Validate(b *bundle.Bundle, r *Reporter) {
	for i := range b.Payload.Enrollments {
		e := &b.Payload.Enrollments[i]
		existing, ok := b.Preheat.Enrollment(e.Enrollment)
		if !ok {
			continue
		}
		terminal := existing.Status == tracker.EnrollmentCompleted ||
			existing.Status == tracker.EnrollmentCancelled
		r.AddErrorIf(terminal && e.Status == tracker.EnrollmentActive,
			e.Ref(), tracker.CodeStatusTransition,
			"enrollment cannot move from %s back to %s", existing.Status, e.Status)
	}

	for i := range b.Payload.Events {
		ev := &b.Payload.Events[i]
		existing, ok := b.Preheat.Event(ev.Event)
		if !ok {
			continue
		}
		if existing.Deleted {
			r.AddError(ev.Ref(), tracker.CodeStatusTransition,
				"event %s was deleted and cannot be updated", ev.Event)
			continue
		}
		r.AddErrorIf(existing.Status == tracker.EventCompleted && ev.Status == tracker.EventActive,
			ev.Ref(), tracker.CodeStatusTransition,
			"event cannot move from %s back to %s", existing.Status, ev.Status)
	}
}
