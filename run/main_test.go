package run

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ridge/launch/config"
	"github.com/ridge/launch/test"
	"github.com/stretchr/testify/require"
)

type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", int(e))
}

func (e exitError) ExitCode() int {
	return int(e)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("boom")))
	require.Equal(t, 2, ExitCode(exitError(2)))
	require.Equal(t, 0, ExitCode(fmt.Errorf("wrapped: %w", exitError(0))))
}

func TestToolRunsExitHooks(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		code int
	}{
		"success":     {nil, 0},
		"failure":     {errors.New("boom"), 1},
		"custom code": {exitError(3), 3},
	} {
		t.Run(name, func(t *testing.T) {
			var order []string
			AtExit(func() { order = append(order, "first") })
			AtExit(func() { order = append(order, "second") })

			code := tool(test.Context(t), func(ctx context.Context) error {
				require.Empty(t, order)
				return tc.err
			})
			require.Equal(t, tc.code, code)
			require.Equal(t, []string{"second", "first"}, order)
		})
	}
}

func TestExitHooksRunOnce(t *testing.T) {
	calls := 0
	AtExit(func() { calls++ })

	tool(test.Context(t), func(ctx context.Context) error { return nil })
	tool(test.Context(t), func(ctx context.Context) error { return nil })
	require.Equal(t, 1, calls)
}

func TestServerTaskIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()

	err := serverTask(func(ctx context.Context) error {
		return fmt.Errorf("serving: %w", ctx.Err())
	})(ctx)
	require.NoError(t, err)

	err = serverTask(func(ctx context.Context) error {
		return errors.New("boom")
	})(ctx)
	require.EqualError(t, err, "boom")
}

func TestCLIConfig(t *testing.T) {
	cfg := cliConfig([]string{"-d", "--log-format", "json", "-p", "1234", "--unknown", "app.yaml"})
	require.True(t, cfg.Verbose)
	require.False(t, cfg.Warnings)
	require.EqualValues(t, "json", cfg.Format)
}

func TestLoggingArgsUnderCGI(t *testing.T) {
	args := []string{"-d", "--log-format", "json", "app.yaml"}
	env := func(vars map[string]string) func(string) (string, bool) {
		return func(name string) (string, bool) {
			v, ok := vars[name]
			return v, ok
		}
	}

	require.Equal(t, args, loggingArgs(args, env(nil)))
	require.Nil(t, loggingArgs(args, env(map[string]string{config.CGIIndicator: "GET"})))
	require.Nil(t, loggingArgs([]string{"--log-format", "bogus"}, env(map[string]string{config.CGIIndicator: ""})))
}
