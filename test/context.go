// Package test contains helpers shared by the unit tests of this module
package test

import (
	"context"
	"testing"
	"time"

	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Context returns a new testing context.
//
// If your code relies on the values normally injected into the context by
// run.Tool, it's a good idea to test it with Context to provide adequate
// replacements.
func Context(t *testing.T) context.Context {
	return tlog.WithLogger(context.Background(), tlog.NewForTesting(t))
}

// ContextWithTimeout is a version of Context with a timeout.
//
// If the timeout expires, the test context is closed with
// context.DeadlineExceeded.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(Context(t), timeout)
	t.Cleanup(cancel)
	return ctx
}

// ContextWithLogs returns a testing context whose logger records every
// message, at all levels, for later inspection
func ContextWithLogs(t *testing.T) (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(zapcore.NewTee(tlog.NewForTesting(t).Core(), core))
	return tlog.WithLogger(context.Background(), logger), logs
}
