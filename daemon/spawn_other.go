//go:build !unix

package daemon

import (
	"errors"
)

func spawn() (int, error) {
	return 0, errors.New("daemonizing is not supported on this platform")
}

func sessionID() int {
	return -1
}
