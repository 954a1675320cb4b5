package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches nested code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeLedgerTimeout, "confirmation timed out")
		outer := Wrap(fmt.Errorf("mint: %w", inner), CodeIssuanceFailed, "issuance failed")
		assert.True(t, HasCode(outer, CodeIssuanceFailed))
		assert.True(t, HasCode(outer, CodeLedgerTimeout))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(errors.New("dial tcp: refused"), CodeIndexUnavailable, "index unavailable")
	assert.Equal(t, "index unavailable: dial tcp: refused", err.Error())
	assert.True(t, Is(err))
	assert.True(t, Is(err, CodeNotFound, CodeIndexUnavailable))
	assert.False(t, Is(err, CodeNotFound))
}
