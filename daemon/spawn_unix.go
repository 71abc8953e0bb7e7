//go:build unix

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

var (
	osExecutable = os.Executable
	executable   = osExecutable
)

func spawn() (int, error) {
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer null.Close()

	cmd, err := command(null)
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	pid := cmd.Process.Pid
	// The child is not waited for
	if err := cmd.Process.Release(); err != nil {
		return 0, err
	}
	return pid, nil
}

// command prepares the background copy of the process, with stdio on null
func command(null *os.File) (*exec.Cmd, error) {
	path, err := executable()
	if err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, os.Args[1:]...)
	cmd.Dir = wd
	cmd.Env = markerEnv()
	cmd.Stdin = null
	cmd.Stdout = null
	cmd.Stderr = null
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd, nil
}

func sessionID() int {
	sid, err := unix.Getsid(0)
	if err != nil {
		return -1
	}
	return sid
}
