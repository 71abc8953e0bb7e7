// Package daemon moves the process into the background and keeps its PID
// file
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
)

// Marker is the environment variable that tells a re-executed process it is
// already the background copy
const Marker = "LAUNCH_DAEMONIZED"

// Detached is returned by Daemonize in the foreground process after the
// background copy has been started. The foreground process should exit
// successfully.
var Detached error = detached{}

type detached struct{}

func (detached) Error() string {
	return "detached into background"
}

// ExitCode implements run.WithExitCode
func (detached) ExitCode() int {
	return 0
}

// IsDetached tells whether err means the foreground process is done
func IsDetached(err error) bool {
	return errors.Is(err, Detached)
}

// Daemonize detaches the process from its terminal.
//
// Go programs cannot fork, so the program is started again, with the same
// arguments and working directory, in a new session and with the standard
// streams on the null device. In the original process Daemonize returns
// Detached. In the new one it changes to the root directory and returns nil,
// and the caller continues.
//
// The new process parses its command line before getting here, in the same
// directory as the original one, so relative paths resolve the same way.
// Paths that are still relative afterwards are relative to the root.
func Daemonize(ctx context.Context) error {
	if _, ok := os.LookupEnv(Marker); ok {
		if err := os.Unsetenv(Marker); err != nil {
			return fmt.Errorf("failed to clear %s: %w", Marker, err)
		}
		if err := os.Chdir("/"); err != nil {
			return fmt.Errorf("failed to change to the root directory: %w", err)
		}
		tlog.Get(ctx).Debug("Running in background", zap.Int("pid", os.Getpid()), zap.Int("sid", sessionID()))
		return nil
	}

	pid, err := spawn()
	if err != nil {
		return fmt.Errorf("failed to daemonize: %w", err)
	}
	tlog.Get(ctx).Debug("Detached into background", zap.Int("pid", pid))
	return Detached
}

func markerEnv() []string {
	return append(os.Environ(), Marker+"="+strconv.Itoa(os.Getpid()))
}
