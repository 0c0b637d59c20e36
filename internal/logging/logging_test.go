package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsBothModes(t *testing.T) {
	l, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = New(false)
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestForComponentTagsField(t *testing.T) {
	base, err := New(true)
	require.NoError(t, err)
	sugared := ForComponent(base, "measure")
	require.NotNil(t, sugared)
}

func TestNoOpNeverPanics(t *testing.T) {
	require.NotPanics(t, func() {
		NoOp().Infow("test", "k", "v")
	})
}
