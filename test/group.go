package test

import (
	"context"
	"errors"
	"testing"

	"github.com/ridge/parallel"
	"github.com/stretchr/testify/require"
)

// Group returns a parallel.Group running on a testing context.
//
// Servers and handlers under test are spawned into the group. When the test
// ends the group is shut down, and an error other than context.Canceled
// fails the test.
func Group(t *testing.T) *parallel.Group {
	group := parallel.NewGroup(Context(t))
	t.Cleanup(func() {
		group.Exit(nil)
		if err := group.Wait(); !errors.Is(err, context.Canceled) {
			require.NoError(t, err)
		}
	})
	return group
}
