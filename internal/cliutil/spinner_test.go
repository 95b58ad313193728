package cliutil_test

import (
	"os"
	"testing"

	"github.com/midbel/xsltproof/internal/cliutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinnerRunInvokesFunction(t *testing.T) {
	s := cliutil.NewSpinner()
	s.SetMessage("working...")

	var called bool
	s.Run(func() {
		called = true
	})
	assert.True(t, called)
}

func TestIsTerminalFalseForPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, cliutil.IsTerminal(w))
}
