package test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Chdir changes the working directory of the process for the rest of the
// test. Tests using it must not run in parallel.
func Chdir(t *testing.T, dir string) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(wd))
	})
}
