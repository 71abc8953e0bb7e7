// Package tnet opens the listening sockets handlers serve on
package tnet

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ridge/must/v2"
)

var lc = net.ListenConfig{
	KeepAlive: 3 * time.Minute,
}

// Listen opens a listening socket.
//
// An address of the form "unix:PATH" is a UNIX domain socket. Anything else,
// optionally prefixed with "tcp:", is a [host]:port TCP address, with TCP
// keep-alive enabled.
func Listen(address string) (net.Listener, error) {
	network, address := split(address)
	return lc.Listen(context.Background(), network, address)
}

func split(address string) (network, rest string) {
	if proto, rest, ok := strings.Cut(address, ":"); ok {
		switch proto {
		case "unix":
			return "unix", rest
		case "tcp":
			return "tcp", rest
		}
	}
	return "tcp", address
}

// Address turns the --host and --port options into an address for Listen.
//
// A host that is an absolute path or starts with "unix:" names a UNIX domain
// socket, and the port is ignored. IPv6 literals are bracketed.
func Address(host string, port int) string {
	switch {
	case strings.HasPrefix(host, "unix:"):
		return host
	case strings.HasPrefix(host, "/"):
		return "unix:" + host
	default:
		return net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// ListenOnRandomPort selects a random local TCP port and installs a listener on
// it with TCP keep-alive enabled
func ListenOnRandomPort() net.Listener {
	return must.OK1(Listen("localhost:"))
}
