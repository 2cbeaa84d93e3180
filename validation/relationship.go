package validation

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// RelationshipValidator requires a known relationship type and two
// resolvable endpoints. Endpoints may point at entities created by the
// same batch.
type RelationshipValidator struct{}

func (RelationshipValidator) Name() string { return "relationship" }

func (RelationshipValidator) Validate(b *bundle.Bundle, r *Reporter) {
	for i := range b.Payload.Relationships {
		rel := &b.Payload.Relationships[i]

		_, ok := b.Preheat.RelationshipType(rel.RelationshipType)
		r.AddErrorIf(!ok, rel.Ref(), tracker.CodeRelationshipType,
			"relationship type %s not found", rel.RelationshipType)

		validateEndpoint(b, r, rel, "from", rel.From)
		validateEndpoint(b, r, rel, "to", rel.To)
	}
}

func validateEndpoint(b *bundle.Bundle, r *Reporter, rel *tracker.Relationship, side string, item tracker.RelationshipItem) {
	if item.IsEmpty() {
		r.AddError(rel.Ref(), tracker.CodeRelationshipEnd,
			"relationship %s side is empty", side)
		return
	}

	var t tracker.Type
	var uid string
	switch {
	case item.TrackedEntity != "":
		t, uid = tracker.TypeTrackedEntity, item.TrackedEntity
	case item.Enrollment != "":
		t, uid = tracker.TypeEnrollment, item.Enrollment
	default:
		t, uid = tracker.TypeEvent, item.Event
	}

	known := payloadHas(b, t, uid) || b.Preheat.Exists(t, uid)
	r.AddErrorIf(!known, rel.Ref(), tracker.CodeRelationshipEnd,
		"relationship %s side references unknown %s %s", side, t, uid)
}
