package tracker

import (
	"time"

	"github.com/google/uuid"
)

// Attribute is a tracked entity attribute value in the payload.
type Attribute struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Value     string `json:"value" yaml:"value"`
}

// DataValue is an event data value in the payload.
type DataValue struct {
	DataElement       string `json:"dataElement" yaml:"dataElement"`
	Value             string `json:"value" yaml:"value"`
	ProvidedElsewhere bool   `json:"providedElsewhere,omitempty" yaml:"providedElsewhere,omitempty"`
}

// TrackedEntity is a payload tracked entity.
type TrackedEntity struct {
	TrackedEntity     string      `json:"trackedEntity" yaml:"trackedEntity"`
	TrackedEntityType string      `json:"trackedEntityType" yaml:"trackedEntityType"`
	OrgUnit           string      `json:"orgUnit" yaml:"orgUnit"`
	Attributes        []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Deleted           bool        `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// UID returns the client-supplied identifier.
func (t *TrackedEntity) UID() string { return t.TrackedEntity }

// Ref returns the entity reference used by reports and the reporter.
func (t *TrackedEntity) Ref() Ref { return Ref{Type: TypeTrackedEntity, UID: t.TrackedEntity} }

// AttributeValue returns the payload value for an attribute UID, and
// whether the attribute is present at all.
func (t *TrackedEntity) AttributeValue(attributeUID string) (string, bool) {
	for _, a := range t.Attributes {
		if a.Attribute == attributeUID {
			return a.Value, true
		}
	}
	return "", false
}

// Enrollment is a payload enrollment.
type Enrollment struct {
	Enrollment    string           `json:"enrollment" yaml:"enrollment"`
	Program       string           `json:"program" yaml:"program"`
	TrackedEntity string           `json:"trackedEntity" yaml:"trackedEntity"`
	OrgUnit       string           `json:"orgUnit" yaml:"orgUnit"`
	Status        EnrollmentStatus `json:"status" yaml:"status"`
	EnrolledAt    time.Time        `json:"enrolledAt" yaml:"enrolledAt"`
	OccurredAt    time.Time        `json:"occurredAt,omitempty" yaml:"occurredAt,omitempty"`
	Attributes    []Attribute      `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Deleted       bool             `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

func (e *Enrollment) UID() string { return e.Enrollment }

func (e *Enrollment) Ref() Ref { return Ref{Type: TypeEnrollment, UID: e.Enrollment} }

// AttributeValue returns the payload value for an attribute UID.
func (e *Enrollment) AttributeValue(attributeUID string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Attribute == attributeUID {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttributeValue writes an attribute value, appending when absent.
// Used by the assign-value rule executor.
func (e *Enrollment) SetAttributeValue(attributeUID, value string) {
	for i := range e.Attributes {
		if e.Attributes[i].Attribute == attributeUID {
			e.Attributes[i].Value = value
			return
		}
	}
	e.Attributes = append(e.Attributes, Attribute{Attribute: attributeUID, Value: value})
}

// Event is a payload event.
type Event struct {
	Event                string      `json:"event" yaml:"event"`
	Enrollment           string      `json:"enrollment,omitempty" yaml:"enrollment,omitempty"`
	Program              string      `json:"program" yaml:"program"`
	ProgramStage         string      `json:"programStage" yaml:"programStage"`
	OrgUnit              string      `json:"orgUnit" yaml:"orgUnit"`
	AttributeOptionCombo string      `json:"attributeOptionCombo,omitempty" yaml:"attributeOptionCombo,omitempty"`
	Status               EventStatus `json:"status" yaml:"status"`
	OccurredAt           time.Time   `json:"occurredAt" yaml:"occurredAt"`
	DataValues           []DataValue `json:"dataValues,omitempty" yaml:"dataValues,omitempty"`
	Deleted              bool        `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

func (e *Event) UID() string { return e.Event }

func (e *Event) Ref() Ref { return Ref{Type: TypeEvent, UID: e.Event} }

// DataValueFor returns the payload value for a data element UID.
func (e *Event) DataValueFor(dataElementUID string) (string, bool) {
	for _, dv := range e.DataValues {
		if dv.DataElement == dataElementUID {
			return dv.Value, true
		}
	}
	return "", false
}

// SetDataValue writes a data value, appending when absent.
func (e *Event) SetDataValue(dataElementUID, value string) {
	for i := range e.DataValues {
		if e.DataValues[i].DataElement == dataElementUID {
			e.DataValues[i].Value = value
			return
		}
	}
	e.DataValues = append(e.DataValues, DataValue{DataElement: dataElementUID, Value: value})
}

// RemoveDataValue drops a data value. Reports whether one was present.
func (e *Event) RemoveDataValue(dataElementUID string) bool {
	for i := range e.DataValues {
		if e.DataValues[i].DataElement == dataElementUID {
			e.DataValues = append(e.DataValues[:i], e.DataValues[i+1:]...)
			return true
		}
	}
	return false
}

// RelationshipItem is one endpoint of a relationship. Exactly one field
// should be set.
type RelationshipItem struct {
	TrackedEntity string `json:"trackedEntity,omitempty" yaml:"trackedEntity,omitempty"`
	Enrollment    string `json:"enrollment,omitempty" yaml:"enrollment,omitempty"`
	Event         string `json:"event,omitempty" yaml:"event,omitempty"`
}

// IsEmpty reports whether no endpoint field is set.
func (i RelationshipItem) IsEmpty() bool {
	return i.TrackedEntity == "" && i.Enrollment == "" && i.Event == ""
}

// Relationship is a payload relationship between two tracker entities.
type Relationship struct {
	Relationship     string           `json:"relationship" yaml:"relationship"`
	RelationshipType string           `json:"relationshipType" yaml:"relationshipType"`
	From             RelationshipItem `json:"from" yaml:"from"`
	To               RelationshipItem `json:"to" yaml:"to"`
	Deleted          bool             `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

func (r *Relationship) UID() string { return r.Relationship }

func (r *Relationship) Ref() Ref { return Ref{Type: TypeRelationship, UID: r.Relationship} }

// Payload is one import batch as submitted by the client, in submission
// order per kind.
type Payload struct {
	TrackedEntities []TrackedEntity `json:"trackedEntities,omitempty" yaml:"trackedEntities,omitempty"`
	Enrollments     []Enrollment    `json:"enrollments,omitempty" yaml:"enrollments,omitempty"`
	Events          []Event         `json:"events,omitempty" yaml:"events,omitempty"`
	Relationships   []Relationship  `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// CountFor returns the number of payload entities of one kind.
func (p *Payload) CountFor(t Type) int {
	switch t {
	case TypeTrackedEntity:
		return len(p.TrackedEntities)
	case TypeEnrollment:
		return len(p.Enrollments)
	case TypeEvent:
		return len(p.Events)
	case TypeRelationship:
		return len(p.Relationships)
	}
	return 0
}

// Size returns the total number of payload entities.
func (p *Payload) Size() int {
	return len(p.TrackedEntities) + len(p.Enrollments) + len(p.Events) + len(p.Relationships)
}

// EnsureUIDs generates identifiers for payload entities that came without
// one, so every entity is addressable in reports. Client-supplied UIDs are
// never touched; duplicate detection is the validators' job.
func (p *Payload) EnsureUIDs() {
	for i := range p.TrackedEntities {
		if p.TrackedEntities[i].TrackedEntity == "" {
			p.TrackedEntities[i].TrackedEntity = GenerateUID()
		}
	}
	for i := range p.Enrollments {
		if p.Enrollments[i].Enrollment == "" {
			p.Enrollments[i].Enrollment = GenerateUID()
		}
	}
	for i := range p.Events {
		if p.Events[i].Event == "" {
			p.Events[i].Event = GenerateUID()
		}
	}
	for i := range p.Relationships {
		if p.Relationships[i].Relationship == "" {
			p.Relationships[i].Relationship = GenerateUID()
		}
	}
}

const uidAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateUID returns an 11-character identifier starting with a letter,
// derived from a random UUID.
func GenerateUID() string {
	raw := uuid.New()
	out := make([]byte, 11)
	// First character must be a letter (52 options), the rest are alphanumeric.
	out[0] = uidAlphabet[int(raw[0])%52]
	for i := 1; i < 11; i++ {
		out[i] = uidAlphabet[int(raw[i])%len(uidAlphabet)]
	}
	return string(out)
}
