package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueTypeEqualsNumeric(t *testing.T) {
	assert.True(t, ValueTypeInteger.Equals("7", "07"))
	assert.True(t, ValueTypeNumber.Equals("7", "7.0"))
	assert.True(t, ValueTypeNumber.Equals(" 7 ", "7"))
	assert.False(t, ValueTypeNumber.Equals("7", "7.1"))

	// Unparseable values fall back to string comparison.
	assert.False(t, ValueTypeNumber.Equals("seven", "7"))
	assert.True(t, ValueTypeNumber.Equals("seven", "seven"))
}

func TestValueTypeEqualsBoolean(t *testing.T) {
	assert.True(t, ValueTypeBoolean.Equals("true", "TRUE"))
	assert.True(t, ValueTypeBoolean.Equals("1", "true"))
	assert.False(t, ValueTypeBoolean.Equals("true", "false"))
	assert.False(t, ValueTypeBoolean.Equals("yes", "true"))
}

func TestValueTypeEqualsTextIsCaseSensitive(t *testing.T) {
	assert.True(t, ValueTypeText.Equals("abc", "abc"))
	assert.False(t, ValueTypeText.Equals("abc", "ABC"))
}

func TestIdentifierValuePerScheme(t *testing.T) {
	obj := Identifiable{
		UID:             "ab1cd2ef3gh",
		Code:            "OU_CODE",
		Name:            "North Clinic",
		AttributeValues: map[string]string{"attrLegacyx": "L-42"},
	}

	assert.Equal(t, "ab1cd2ef3gh", obj.IdentifierValue(IdSchemeParam{Scheme: SchemeUID}))
	assert.Equal(t, "OU_CODE", obj.IdentifierValue(IdSchemeParam{Scheme: SchemeCode}))
	assert.Equal(t, "North Clinic", obj.IdentifierValue(IdSchemeParam{Scheme: SchemeName}))
	assert.Equal(t, "L-42", obj.IdentifierValue(IdSchemeParam{Scheme: SchemeAttribute, AttributeUID: "attrLegacyx"}))
	assert.Equal(t, "", obj.IdentifierValue(IdSchemeParam{Scheme: SchemeAttribute, AttributeUID: "attrOtherxx"}))
}
