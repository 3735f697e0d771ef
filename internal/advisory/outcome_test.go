package advisory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	ok := OK(3)
	v, err := ok.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.False(t, ok.IsFallback())
	assert.Equal(t, "ok", ok.Kind.String())

	fb := Fallback("canned", "client offline")
	s, err := fb.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "canned", s)
	assert.True(t, fb.IsFallback())
	assert.Equal(t, "client offline", fb.Reason)

	boom := errors.New("boom")
	failed := Failed[int](boom)
	v, err = failed.Unwrap()
	require.ErrorIs(t, err, boom)
	assert.Zero(t, v)
	assert.Equal(t, "failed", failed.Kind.String())
}
