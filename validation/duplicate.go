package validation

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// DuplicateValidator flags client identifiers that occur more than once
// within the batch for the same kind. Duplicates are an error, never a
// silent merge.
type DuplicateValidator struct{}

func (DuplicateValidator) Name() string { return "duplicate" }

func (DuplicateValidator) Validate(b *bundle.Bundle, r *Reporter) {
	checkDuplicates(r, tracker.TypeTrackedEntity, len(b.Payload.TrackedEntities), func(i int) string {
		return b.Payload.TrackedEntities[i].TrackedEntity
	})
	checkDuplicates(r, tracker.TypeEnrollment, len(b.Payload.Enrollments), func(i int) string {
		return b.Payload.Enrollments[i].Enrollment
	})
	checkDuplicates(r, tracker.TypeEvent, len(b.Payload.Events), func(i int) string {
		return b.Payload.Events[i].Event
	})
	checkDuplicates(r, tracker.TypeRelationship, len(b.Payload.Relationships), func(i int) string {
		return b.Payload.Relationships[i].Relationship
	})
}

func checkDuplicates(r *Reporter, t tracker.Type, n int, uidAt func(int) string) {
	counts := make(map[string]int, n)
	for i := 0; i < n; i++ {
		counts[uidAt(i)]++
	}
	reported := make(map[string]struct{})
	for i := 0; i < n; i++ {
		uid := uidAt(i)
		if counts[uid] < 2 {
			continue
		}
		if _, done := reported[uid]; done {
			continue
		}
		reported[uid] = struct{}{}
		r.AddError(tracker.Ref{Type: t, UID: uid}, tracker.CodeDuplicateUID,
			"identifier %s occurs %d times in the payload", uid, counts[uid])
	}
}
