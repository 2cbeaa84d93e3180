package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForKindOverrideBeatsDefault(t *testing.T) {
	params := IdSchemeParams{
		Default: IdSchemeParam{Scheme: SchemeCode},
		OrgUnit: IdSchemeParam{Scheme: SchemeName},
	}

	assert.Equal(t, SchemeName, params.ForKind(KindOrganisationUnit).Scheme)
	assert.Equal(t, SchemeCode, params.ForKind(KindProgram).Scheme)
	assert.Equal(t, SchemeCode, params.ForKind(KindDataElement).Scheme)
}

func TestForKindFallsBackToUID(t *testing.T) {
	var params IdSchemeParams
	for _, kind := range MetadataKinds() {
		assert.Equal(t, SchemeUID, params.ForKind(kind).Scheme)
	}
}

func TestForKindKindsWithoutOverrideUseDefault(t *testing.T) {
	params := IdSchemeParams{Default: IdSchemeParam{Scheme: SchemeAttribute, AttributeUID: "attrX"}}

	// Relationship types have no per-kind override.
	p := params.ForKind(KindRelationshipType)
	assert.Equal(t, SchemeAttribute, p.Scheme)
	assert.Equal(t, "attrX", p.AttributeUID)
}

func TestIdentifierKeySeparatesSchemes(t *testing.T) {
	uid := NewIdentifier(IdSchemeParam{Scheme: SchemeUID}, "val")
	code := NewIdentifier(IdSchemeParam{Scheme: SchemeCode}, "val")
	attr := NewIdentifier(IdSchemeParam{Scheme: SchemeAttribute, AttributeUID: "attrA"}, "val")
	attrB := NewIdentifier(IdSchemeParam{Scheme: SchemeAttribute, AttributeUID: "attrB"}, "val")

	keys := map[string]struct{}{
		uid.Key(): {}, code.Key(): {}, attr.Key(): {}, attrB.Key(): {},
	}
	assert.Len(t, keys, 4, "same value under different schemes must not collide")
}
