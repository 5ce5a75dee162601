package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped coded errors", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", New(CodeUnauthorized, "invalid token"))
		assert.True(t, HasCode(err, CodeUnauthorized))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestErrorsIs(t *testing.T) {
	err := Wrap(errors.New("cause"), CodeNotFound, "document not found")
	assert.ErrorIs(t, err, New(CodeNotFound, "document not found"))
	assert.NotErrorIs(t, err, New(CodeNotFound, "other"))
	assert.Equal(t, "not_found: document not found: cause", err.Error())
}
