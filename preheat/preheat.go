package preheat

import (
	"fmt"
	"sort"

	"github.com/teranos/trax/tracker"
)

// UniqueValue is one existing unique-attribute value in storage, owned by
// a persisted tracked entity. OrgUnitUID is empty for globally scoped
// attributes.
type UniqueValue struct {
	AttributeUID string
	OrgUnitUID   string
	Value        string
	OwnerUID     string
}

func uniqueKey(attributeUID, orgUnitUID, value string) string {
	return fmt.Sprintf("%s|%s|%s", attributeUID, orgUnitUID, value)
}

// Preheat is the immutable-after-build snapshot of everything an import
// batch references. After Resolve returns, no pipeline stage queries
// storage again; a miss here means "does not exist".
type Preheat struct {
	idSchemes tracker.IdSchemeParams

	metadata map[tracker.MetadataKind]map[string]interface{}
	notFound map[tracker.MetadataKind]map[string]struct{}

	trackedEntities map[string]*tracker.TrackedEntity
	enrollments     map[string]*tracker.Enrollment
	events          map[string]*tracker.Event
	relationships   map[string]*tracker.Relationship

	uniqueValues map[string]string // uniqueKey -> owner tracked entity UID

	rules []tracker.ProgramRule
}

func newPreheat(idSchemes tracker.IdSchemeParams) *Preheat {
	return &Preheat{
		idSchemes:       idSchemes,
		metadata:        make(map[tracker.MetadataKind]map[string]interface{}),
		notFound:        make(map[tracker.MetadataKind]map[string]struct{}),
		trackedEntities: make(map[string]*tracker.TrackedEntity),
		enrollments:     make(map[string]*tracker.Enrollment),
		events:          make(map[string]*tracker.Event),
		relationships:   make(map[string]*tracker.Relationship),
		uniqueValues:    make(map[string]string),
	}
}

// IdSchemes returns the scheme params the snapshot was built under.
func (p *Preheat) IdSchemes() tracker.IdSchemeParams {
	return p.idSchemes
}

// identifierFor interprets a raw payload string under the batch's scheme
// for the given kind.
func (p *Preheat) identifierFor(kind tracker.MetadataKind, value string) tracker.MetadataIdentifier {
	return tracker.NewIdentifier(p.idSchemes.ForKind(kind), value)
}

func (p *Preheat) putMetadata(kind tracker.MetadataKind, id tracker.MetadataIdentifier, obj interface{}) {
	m, ok := p.metadata[kind]
	if !ok {
		m = make(map[string]interface{})
		p.metadata[kind] = m
	}
	m[id.Key()] = obj
}

func (p *Preheat) markNotFound(kind tracker.MetadataKind, id tracker.MetadataIdentifier) {
	m, ok := p.notFound[kind]
	if !ok {
		m = make(map[string]struct{})
		p.notFound[kind] = m
	}
	m[id.Key()] = struct{}{}
}

func (p *Preheat) getMetadata(kind tracker.MetadataKind, value string) (interface{}, bool) {
	if value == "" {
		return nil, false
	}
	id := p.identifierFor(kind, value)
	obj, ok := p.metadata[kind][id.Key()]
	return obj, ok
}

// IsNotFound reports whether a reference was searched during resolution
// and missing from storage, as opposed to never referenced.
func (p *Preheat) IsNotFound(kind tracker.MetadataKind, value string) bool {
	id := p.identifierFor(kind, value)
	_, ok := p.notFound[kind][id.Key()]
	return ok
}

// OrganisationUnit resolves a payload org unit reference.
func (p *Preheat) OrganisationUnit(value string) (*tracker.OrganisationUnit, bool) {
	obj, ok := p.getMetadata(tracker.KindOrganisationUnit, value)
	if !ok {
		return nil, false
	}
	ou, ok := obj.(*tracker.OrganisationUnit)
	return ou, ok
}

// Program resolves a payload program reference.
func (p *Preheat) Program(value string) (*tracker.Program, bool) {
	obj, ok := p.getMetadata(tracker.KindProgram, value)
	if !ok {
		return nil, false
	}
	pr, ok := obj.(*tracker.Program)
	return pr, ok
}

// ProgramStage resolves a payload program stage reference.
func (p *Preheat) ProgramStage(value string) (*tracker.ProgramStage, bool) {
	obj, ok := p.getMetadata(tracker.KindProgramStage, value)
	if !ok {
		return nil, false
	}
	ps, ok := obj.(*tracker.ProgramStage)
	return ps, ok
}

// DataElement resolves a payload data element reference.
func (p *Preheat) DataElement(value string) (*tracker.DataElement, bool) {
	obj, ok := p.getMetadata(tracker.KindDataElement, value)
	if !ok {
		return nil, false
	}
	de, ok := obj.(*tracker.DataElement)
	return de, ok
}

// TrackedEntityAttribute resolves a payload attribute reference.
func (p *Preheat) TrackedEntityAttribute(value string) (*tracker.TrackedEntityAttribute, bool) {
	obj, ok := p.getMetadata(tracker.KindTrackedEntityAttribute, value)
	if !ok {
		return nil, false
	}
	tea, ok := obj.(*tracker.TrackedEntityAttribute)
	return tea, ok
}

// CategoryOptionCombo resolves a payload category option combo reference.
func (p *Preheat) CategoryOptionCombo(value string) (*tracker.CategoryOptionCombo, bool) {
	obj, ok := p.getMetadata(tracker.KindCategoryOptionCombo, value)
	if !ok {
		return nil, false
	}
	coc, ok := obj.(*tracker.CategoryOptionCombo)
	return coc, ok
}

// RelationshipType resolves a payload relationship type reference.
func (p *Preheat) RelationshipType(value string) (*tracker.RelationshipType, bool) {
	obj, ok := p.getMetadata(tracker.KindRelationshipType, value)
	if !ok {
		return nil, false
	}
	rt, ok := obj.(*tracker.RelationshipType)
	return rt, ok
}

// TrackedEntityType resolves a payload tracked entity type reference.
func (p *Preheat) TrackedEntityType(value string) (*tracker.TrackedEntityType, bool) {
	obj, ok := p.getMetadata(tracker.KindTrackedEntityType, value)
	if !ok {
		return nil, false
	}
	tet, ok := obj.(*tracker.TrackedEntityType)
	return tet, ok
}

// TrackedEntity returns the existing persisted tracked entity for a
// payload UID, used to decide create vs update.
func (p *Preheat) TrackedEntity(uid string) (*tracker.TrackedEntity, bool) {
	te, ok := p.trackedEntities[uid]
	return te, ok
}

// Enrollment returns the existing persisted enrollment for a payload UID.
func (p *Preheat) Enrollment(uid string) (*tracker.Enrollment, bool) {
	e, ok := p.enrollments[uid]
	return e, ok
}

// Event returns the existing persisted event for a payload UID.
func (p *Preheat) Event(uid string) (*tracker.Event, bool) {
	e, ok := p.events[uid]
	return e, ok
}

// Relationship returns the existing persisted relationship for a payload UID.
func (p *Preheat) Relationship(uid string) (*tracker.Relationship, bool) {
	r, ok := p.relationships[uid]
	return r, ok
}

// Exists reports whether a payload entity resolves to a persisted one.
func (p *Preheat) Exists(t tracker.Type, uid string) bool {
	switch t {
	case tracker.TypeTrackedEntity:
		_, ok := p.trackedEntities[uid]
		return ok
	case tracker.TypeEnrollment:
		_, ok := p.enrollments[uid]
		return ok
	case tracker.TypeEvent:
		_, ok := p.events[uid]
		return ok
	case tracker.TypeRelationship:
		_, ok := p.relationships[uid]
		return ok
	}
	return false
}

// UniqueValueOwner returns the UID of the persisted tracked entity owning
// the given unique attribute value in the given scope, if any. Pass an
// empty orgUnitUID for globally scoped attributes.
func (p *Preheat) UniqueValueOwner(attributeUID, orgUnitUID, value string) (string, bool) {
	owner, ok := p.uniqueValues[uniqueKey(attributeUID, orgUnitUID, value)]
	return owner, ok
}

// Rules returns the program rules for the batch's programs, ordered by
// priority ascending with ties broken by rule UID.
func (p *Preheat) Rules() []tracker.ProgramRule {
	return p.rules
}

func (p *Preheat) setRules(rules []tracker.ProgramRule) {
	sorted := make([]tracker.ProgramRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].UID < sorted[j].UID
	})
	p.rules = sorted
}
