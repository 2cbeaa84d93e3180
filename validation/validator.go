package validation

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// Validator checks one concern across the bundle. Validators read the
// bundle and preheat only; they never query storage and never mutate the
// payload.
type Validator interface {
	Name() string
	Validate(b *bundle.Bundle, r *Reporter)
}

// Chain runs validators in a fixed order. Every validator runs for every
// applicable entity even when earlier validators already flagged it, so
// one entity can accumulate multiple unrelated error codes.
type Chain struct {
	validators []Validator
	logger     *zap.SugaredLogger
}

// NewChain composes a chain from the given validators, in order.
func NewChain(logger *zap.SugaredLogger, validators ...Validator) *Chain {
	return &Chain{validators: validators, logger: logger}
}

// DefaultChain is the production validator ordering.
func DefaultChain(logger *zap.SugaredLogger) *Chain {
	return NewChain(logger,
		DuplicateValidator{},
		ReferenceValidator{},
		AttributeValidator{},
		UniquenessValidator{},
		StatusValidator{},
		RelationshipValidator{},
	)
}

// Run executes the whole chain and returns the reporter's error count.
func (c *Chain) Run(b *bundle.Bundle, r *Reporter) int {
	start := time.Now()
	for _, v := range c.validators {
		v.Validate(b, r)
	}
	c.logger.Debugw("validation chain finished",
		"validators", len(c.validators),
		"errors", r.ErrorCount(),
		"duration", time.Since(start))
	return r.ErrorCount()
}

// payloadHas reports whether the payload itself carries an entity of the
// given kind, used when references may point at batch-local entities that
// do not exist in storage yet.
func payloadHas(b *bundle.Bundle, t tracker.Type, uid string) bool {
	if uid == "" {
		return false
	}
	switch t {
	case tracker.TypeTrackedEntity:
		for i := range b.Payload.TrackedEntities {
			if b.Payload.TrackedEntities[i].TrackedEntity == uid {
				return true
			}
		}
	case tracker.TypeEnrollment:
		for i := range b.Payload.Enrollments {
			if b.Payload.Enrollments[i].Enrollment == uid {
				return true
			}
		}
	case tracker.TypeEvent:
		for i := range b.Payload.Events {
			if b.Payload.Events[i].Event == uid {
				return true
			}
		}
	}
	return false
}
