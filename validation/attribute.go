package validation

import (
	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// AttributeValidator enforces attribute-level constraints: the attribute
// must exist in metadata, its value must fit the configured maximum
// length, and confidential attributes require the encryption subsystem to
// report OK.
type AttributeValidator struct{}

func (AttributeValidator) Name() string { return "attribute" }

func (AttributeValidator) Validate(b *bundle.Bundle, r *Reporter) {
	for i := range b.Payload.TrackedEntities {
		te := &b.Payload.TrackedEntities[i]
		validateAttributes(b, r, te.Ref(), te.Attributes)
	}
	for i := range b.Payload.Enrollments {
		e := &b.Payload.Enrollments[i]
		validateAttributes(b, r, e.Ref(), e.Attributes)
	}
}

func validateAttributes(b *bundle.Bundle, r *Reporter, ref tracker.Ref, attributes []tracker.Attribute) {
	maxLength := b.Settings.MaxAttributeValueLength()

	for _, attr := range attributes {
		tea, ok := b.Preheat.TrackedEntityAttribute(attr.Attribute)
		if !ok {
			r.AddError(ref, tracker.CodeUnknownAttribute,
				"attribute %s not found", attr.Attribute)
			continue
		}

		r.AddErrorIf(len(attr.Value) > maxLength, ref, tracker.CodeValueTooLong,
			"value of attribute %s exceeds maximum length %d", tea.UID, maxLength)

		if tea.Confidential {
			// Status is queried once; the message includes the status key.
			status := b.Encryption.Status()
			r.AddErrorIf(status != bundle.EncryptionStatusOK, ref, tracker.CodeEncryptionStatus,
				"attribute %s is confidential but encryption status is %s", tea.UID, status)
		}
	}
}
