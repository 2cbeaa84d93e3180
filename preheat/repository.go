package preheat

import (
	"context"

	"github.com/teranos/trax/tracker"
)

// MetadataRepository is the bulk metadata lookup collaborator. The
// resolver is its only caller; one FindMetadata call covers every
// reference of one (kind, scheme) pair in a batch.
type MetadataRepository interface {
	// FindMetadata resolves raw payload values of one kind under one
	// scheme param. The result maps each found input value to its
	// metadata object (*tracker.OrganisationUnit, *tracker.Program, ...).
	// Input values absent from the result do not exist in storage.
	FindMetadata(ctx context.Context, kind tracker.MetadataKind, param tracker.IdSchemeParam, values []string) (map[string]interface{}, error)

	// ProgramRules returns the configured rules of one program, used
	// through the preheat cache since rules change slowly relative to
	// import traffic.
	ProgramRules(ctx context.Context, programUID string) ([]tracker.ProgramRule, error)
}

// EntityRepository is the bulk tracker entity lookup collaborator, used to
// decide create vs update and to precompute uniqueness scopes.
type EntityRepository interface {
	FindTrackedEntities(ctx context.Context, uids []string) (map[string]*tracker.TrackedEntity, error)
	FindEnrollments(ctx context.Context, uids []string) (map[string]*tracker.Enrollment, error)
	FindEvents(ctx context.Context, uids []string) (map[string]*tracker.Event, error)
	FindRelationships(ctx context.Context, uids []string) (map[string]*tracker.Relationship, error)

	// UniqueAttributeValues returns every stored value of the given
	// unique attributes, with its owning tracked entity and org unit
	// scope. One call per batch regardless of payload size.
	UniqueAttributeValues(ctx context.Context, attributeUIDs []string) ([]UniqueValue, error)
}
