package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// WritePID writes the process ID to path and registers its removal with
// atExit. The file is removed on exit only if it still exists.
func WritePID(path string, atExit func(hook func())) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o666); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	atExit(func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "failed to remove PID file: %v\n", err)
		}
	})
	return nil
}

// AlreadyRunningError is returned by CheckPID when the PID file belongs to a
// live process
type AlreadyRunningError struct {
	Path string
	PID  int
}

func (e AlreadyRunningError) Error() string {
	return fmt.Sprintf("a server is already running (pid %d, file %s)", e.PID, e.Path)
}

// CheckPID makes sure that the PID file can be taken over. A file left by a
// process that is gone, or one that does not contain a PID, is removed.
func CheckPID(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid > 0 && pid != os.Getpid() && processAlive(pid) {
		return AlreadyRunningError{Path: path, PID: pid}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale PID file: %w", err)
	}
	return nil
}
