package preheat

import (
	"github.com/teranos/trax/tracker"
)

// Builder assembles a Preheat snapshot without going through the
// resolver. The resolver is the production path; the builder serves
// tests and embedded callers that already hold the referenced objects.
type Builder struct {
	p *Preheat
}

// NewBuilder starts an empty snapshot under the given scheme params.
func NewBuilder(idSchemes tracker.IdSchemeParams) *Builder {
	return &Builder{p: newPreheat(idSchemes)}
}

// WithMetadata registers a metadata object under the scheme-resolved key
// for its kind.
func (b *Builder) WithMetadata(kind tracker.MetadataKind, value string, obj interface{}) *Builder {
	b.p.putMetadata(kind, b.p.identifierFor(kind, value), obj)
	return b
}

// WithNotFound marks a reference as searched and missing.
func (b *Builder) WithNotFound(kind tracker.MetadataKind, value string) *Builder {
	b.p.markNotFound(kind, b.p.identifierFor(kind, value))
	return b
}

// WithTrackedEntity registers an existing persisted tracked entity.
func (b *Builder) WithTrackedEntity(te *tracker.TrackedEntity) *Builder {
	b.p.trackedEntities[te.TrackedEntity] = te
	return b
}

// WithEnrollment registers an existing persisted enrollment.
func (b *Builder) WithEnrollment(e *tracker.Enrollment) *Builder {
	b.p.enrollments[e.Enrollment] = e
	return b
}

// WithEvent registers an existing persisted event.
func (b *Builder) WithEvent(e *tracker.Event) *Builder {
	b.p.events[e.Event] = e
	return b
}

// WithRelationship registers an existing persisted relationship.
func (b *Builder) WithRelationship(r *tracker.Relationship) *Builder {
	b.p.relationships[r.Relationship] = r
	return b
}

// WithUniqueValue registers an existing unique attribute value and its
// owning tracked entity.
func (b *Builder) WithUniqueValue(attributeUID, orgUnitUID, value, ownerUID string) *Builder {
	b.p.uniqueValues[uniqueKey(attributeUID, orgUnitUID, value)] = ownerUID
	return b
}

// WithRules registers program rules; Build sorts them by priority.
func (b *Builder) WithRules(rules ...tracker.ProgramRule) *Builder {
	b.p.rules = append(b.p.rules, rules...)
	return b
}

// Build finalizes the snapshot.
func (b *Builder) Build() *Preheat {
	b.p.setRules(b.p.rules)
	return b.p
}
