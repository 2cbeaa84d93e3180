package validation

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// ReferenceValidator decides which resolution gaps are material. A
// missing org unit, program or program stage on the entity that requires
// it is a hard error; optional references that were never supplied are
// not.
type ReferenceValidator struct{}

func (ReferenceValidator) Name() string { return "reference" }

func (ReferenceValidator) Validate(b *bundle.Bundle, r *Reporter) {
	for i := range b.Payload.TrackedEntities {
		te := &b.Payload.TrackedEntities[i]
		_, ok := b.Preheat.OrganisationUnit(te.OrgUnit)
		r.AddErrorIf(!ok, te.Ref(), tracker.CodeMissingOrgUnit,
			"organisation unit %s not found", te.OrgUnit)
	}

	for i := range b.Payload.Enrollments {
		e := &b.Payload.Enrollments[i]
		_, ok := b.Preheat.Program(e.Program)
		r.AddErrorIf(!ok, e.Ref(), tracker.CodeMissingProgram,
			"program %s not found", e.Program)

		_, ok = b.Preheat.OrganisationUnit(e.OrgUnit)
		r.AddErrorIf(!ok, e.Ref(), tracker.CodeMissingOrgUnit,
			"organisation unit %s not found", e.OrgUnit)

		// The tracked entity may be created by this very batch.
		known := payloadHas(b, tracker.TypeTrackedEntity, e.TrackedEntity) ||
			b.Preheat.Exists(tracker.TypeTrackedEntity, e.TrackedEntity)
		r.AddErrorIf(!known, e.Ref(), tracker.CodeMissingTrackedEnt,
			"tracked entity %s not found", e.TrackedEntity)
	}

	for i := range b.Payload.Events {
		ev := &b.Payload.Events[i]
		_, ok := b.Preheat.OrganisationUnit(ev.OrgUnit)
		r.AddErrorIf(!ok, ev.Ref(), tracker.CodeMissingOrgUnit,
			"organisation unit %s not found", ev.OrgUnit)

		_, ok = b.Preheat.Program(ev.Program)
		r.AddErrorIf(!ok, ev.Ref(), tracker.CodeMissingProgram,
			"program %s not found", ev.Program)

		_, ok = b.Preheat.ProgramStage(ev.ProgramStage)
		r.AddErrorIf(!ok, ev.Ref(), tracker.CodeMissingStage,
			"program stage %s not found", ev.ProgramStage)
	}
}
