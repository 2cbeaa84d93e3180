// Package tracker defines the domain model for the tracker import pipeline:
// entity kinds, identifier schemes, payload DTOs and the metadata objects
// they reference.
package tracker

import "fmt"

// Type discriminates the four kinds of entities a payload can carry.
type Type string

const (
	TypeTrackedEntity Type = "TRACKED_ENTITY"
	TypeEnrollment    Type = "ENROLLMENT"
	TypeEvent         Type = "EVENT"
	TypeRelationship  Type = "RELATIONSHIP"
)

// Types returns all entity kinds in persistence order. Tracked entities are
// persisted before enrollments, enrollments before events, relationships
// last, since each later kind may reference the earlier ones.
func Types() []Type {
	return []Type{TypeTrackedEntity, TypeEnrollment, TypeEvent, TypeRelationship}
}

// Ref identifies one payload entity across pipeline stages and reports.
type Ref struct {
	Type Type   `json:"type"`
	UID  string `json:"uid"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.UID)
}

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventActive    EventStatus = "ACTIVE"
	EventCompleted EventStatus = "COMPLETED"
	EventScheduled EventStatus = "SCHEDULE"
	EventSkipped   EventStatus = "SKIPPED"
)

// ImportOptions control one import call.
type ImportOptions struct {
	// IdSchemes selects how payload strings are matched against metadata.
	IdSchemes IdSchemeParams

	// AtomicDeletes makes a delete group failure fail the whole pipeline
	// call. The default keeps deletes isolated from creates/updates.
	AtomicDeletes bool

	// DryRun runs resolution, rules and validation but skips persistence.
	DryRun bool
}
