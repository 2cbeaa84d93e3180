package tracker

import "fmt"

// IdScheme selects which property of a metadata object a payload
// identifier is matched against.
type IdScheme string

const (
	SchemeUID       IdScheme = "UID"
	SchemeCode      IdScheme = "CODE"
	SchemeName      IdScheme = "NAME"
	SchemeAttribute IdScheme = "ATTRIBUTE"
)

// MetadataKind names the metadata object kinds a payload can reference.
type MetadataKind string

const (
	KindOrganisationUnit       MetadataKind = "OrganisationUnit"
	KindProgram                MetadataKind = "Program"
	KindProgramStage           MetadataKind = "ProgramStage"
	KindDataElement            MetadataKind = "DataElement"
	KindTrackedEntityAttribute MetadataKind = "TrackedEntityAttribute"
	KindCategoryOptionCombo    MetadataKind = "CategoryOptionCombo"
	KindRelationshipType       MetadataKind = "RelationshipType"
	KindTrackedEntityType      MetadataKind = "TrackedEntityType"
)

// MetadataKinds returns every referencable kind, in a stable order.
func MetadataKinds() []MetadataKind {
	return []MetadataKind{
		KindOrganisationUnit,
		KindProgram,
		KindProgramStage,
		KindDataElement,
		KindTrackedEntityAttribute,
		KindCategoryOptionCombo,
		KindRelationshipType,
		KindTrackedEntityType,
	}
}

// IdSchemeParam is one scheme selection. For SchemeAttribute the
// AttributeUID names the metadata attribute whose value is matched.
type IdSchemeParam struct {
	Scheme       IdScheme `json:"scheme"`
	AttributeUID string   `json:"attributeUid,omitempty"`
}

// IsSet reports whether the param was explicitly configured.
func (p IdSchemeParam) IsSet() bool {
	return p.Scheme != ""
}

func (p IdSchemeParam) String() string {
	if p.Scheme == SchemeAttribute {
		return fmt.Sprintf("%s:%s", p.Scheme, p.AttributeUID)
	}
	return string(p.Scheme)
}

// IdSchemeParams carries the default scheme plus per-kind overrides, the
// way import clients configure idScheme/orgUnitIdScheme/programIdScheme...
type IdSchemeParams struct {
	Default             IdSchemeParam `json:"idScheme"`
	OrgUnit             IdSchemeParam `json:"orgUnitIdScheme"`
	Program             IdSchemeParam `json:"programIdScheme"`
	ProgramStage        IdSchemeParam `json:"programStageIdScheme"`
	DataElement         IdSchemeParam `json:"dataElementIdScheme"`
	CategoryOptionCombo IdSchemeParam `json:"categoryOptionComboIdScheme"`
}

// ForKind resolves the effective scheme for a metadata kind: the per-kind
// override if set, else the default, else UID.
func (p IdSchemeParams) ForKind(kind MetadataKind) IdSchemeParam {
	var override IdSchemeParam
	switch kind {
	case KindOrganisationUnit:
		override = p.OrgUnit
	case KindProgram:
		override = p.Program
	case KindProgramStage:
		override = p.ProgramStage
	case KindDataElement:
		override = p.DataElement
	case KindCategoryOptionCombo:
		override = p.CategoryOptionCombo
	}
	if override.IsSet() {
		return override
	}
	if p.Default.IsSet() {
		return p.Default
	}
	return IdSchemeParam{Scheme: SchemeUID}
}

// MetadataIdentifier is a payload reference interpreted under a scheme.
type MetadataIdentifier struct {
	Scheme       IdScheme `json:"scheme"`
	AttributeUID string   `json:"attributeUid,omitempty"`
	Value        string   `json:"value"`
}

// NewIdentifier builds an identifier for a raw payload string under the
// given scheme param.
func NewIdentifier(param IdSchemeParam, value string) MetadataIdentifier {
	return MetadataIdentifier{
		Scheme:       param.Scheme,
		AttributeUID: param.AttributeUID,
		Value:        value,
	}
}

// IsEmpty reports whether the reference is absent from the payload.
func (m MetadataIdentifier) IsEmpty() bool {
	return m.Value == ""
}

// Key is the map key used by the preheat context.
func (m MetadataIdentifier) Key() string {
	if m.Scheme == SchemeAttribute {
		return fmt.Sprintf("%s:%s:%s", m.Scheme, m.AttributeUID, m.Value)
	}
	return fmt.Sprintf("%s:%s", m.Scheme, m.Value)
}

func (m MetadataIdentifier) String() string {
	return m.Key()
}
