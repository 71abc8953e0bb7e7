package thttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ridge/launch/retry"
	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
)

var (
	defaultDialer               = net.Dialer{Timeout: 30 * time.Second}
	retryingDialerBackoffConfig = retry.ExpConfig{
		Min:   10 * time.Millisecond,
		Max:   5 * time.Second,
		Scale: 1.5,
	}
)

// retryingDialer is a dialer for http.Transport that retries dialing while the
// upstream is not resolvable or refuses connections, until the request
// context is closed
func retryingDialer(ctx context.Context, network, address string) (net.Conn, error) {
	backoff := retry.NewExpBackoff(retryingDialerBackoffConfig)

	for {
		conn, err := defaultDialer.DialContext(ctx, network, address)
		if err == nil || !retriable(err) {
			return conn, err
		}
		tlog.Get(ctx).Debug("Upstream not available, retrying", zap.String("address", address), zap.Error(err))
		if err := backoff.Sleep(ctx); err != nil {
			return nil, err
		}
	}
}

func retriable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound || dnsErr.IsTemporary
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout()
}

// RetryingTransport returns a http.RoundTripper that keeps dialing an
// upstream that is not up yet instead of failing the request right away.
// The retries stop when the request context is closed.
func RetryingTransport() http.RoundTripper {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           retryingDialer,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
