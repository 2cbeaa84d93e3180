package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrNotFound, "organisation unit xK7Qf3sLp1D")
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsPersistenceError(err))

	err = Wrapf(ErrPersistence, "bulk save of %d events", 12)
	assert.True(t, IsPersistenceError(err))
	assert.Contains(t, err.Error(), "bulk save of 12 events")
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("program %s", "qDkgAbB5Jlk")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "program qDkgAbB5Jlk")
}

func TestIsHelpersNilSafe(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsInvalidPayloadError(nil))
	assert.False(t, IsPersistenceError(nil))
}
