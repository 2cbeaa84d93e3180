package validation

import (
	"fmt"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// UniquenessValidator enforces unique attributes against the preheated
// set of existing values and against the batch itself. Scope is global
// unless the attribute declares org-unit scoping; an entity never
// conflicts with its own stored value.
type UniquenessValidator struct{}

func (UniquenessValidator) Name() string { return "uniqueness" }

func (UniquenessValidator) Validate(b *bundle.Bundle, r *Reporter) {
	// Values seen within this batch, so two payload entities cannot both
	// claim the same unique value.
	batchValues := make(map[string]string) // scope key -> claiming tracked entity UID

	for i := range b.Payload.TrackedEntities {
		te := &b.Payload.TrackedEntities[i]
		for _, attr := range te.Attributes {
			tea, ok := b.Preheat.TrackedEntityAttribute(attr.Attribute)
			if !ok || !tea.Unique || attr.Value == "" {
				continue
			}

			scopeOrgUnit := ""
			if tea.OrgUnitScope {
				ou, ok := b.Preheat.OrganisationUnit(te.OrgUnit)
				if !ok {
					// Missing org unit is the reference validator's error;
					// without a scope there is nothing to compare against.
					continue
				}
				scopeOrgUnit = ou.UID
			}

			owner, exists := b.Preheat.UniqueValueOwner(tea.UID, scopeOrgUnit, attr.Value)
			r.AddErrorIf(exists && owner != te.TrackedEntity, te.Ref(), tracker.CodeNonUniqueAttribute,
				"value %q of attribute %s is already taken", attr.Value, tea.UID)

			key := fmt.Sprintf("%s|%s|%s", tea.UID, scopeOrgUnit, attr.Value)
			if claimant, claimed := batchValues[key]; claimed && claimant != te.TrackedEntity {
				r.AddError(te.Ref(), tracker.CodeNonUniqueAttribute,
					"value %q of attribute %s is claimed twice in this payload", attr.Value, tea.UID)
			} else {
				batchValues[key] = te.TrackedEntity
			}
		}
	}
}
