package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ridge/launch/config"
	"github.com/ridge/launch/tlog"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var fs = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)

func init() {
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("log-format", string(tlog.FormatText), "log format (json|text)")
	fs.String("log-color", "", "colored logs (yes|no|auto)")
	fs.BoolP("debug", "d", false, "set debugging flags (debug level messages)")
	fs.BoolP("warn", "w", false, "turn warnings on (stack traces on warnings)")
	// Hide usage while parsing the command line here, will be covered by a regular command line parsing.
	fs.Usage = func() {}
	fs.SetOutput(discard{})
}

// Flags returns the logging flags understood by Tool.
//
// The regular command line parser of the program should include them so
// that they are not rejected as unknown.
func Flags() *pflag.FlagSet {
	return fs
}

var exitHooks struct {
	mu    sync.Mutex
	hooks []func()
}

// AtExit registers a function to be called when Tool is about to terminate
// the process.
//
// The hooks run on every exit path Tool controls: normal completion, error
// return, panic in the task and termination by a handled signal. They do not
// run if the process is killed by an unhandled signal. Hooks run in reverse
// order of registration.
func AtExit(hook func()) {
	exitHooks.mu.Lock()
	defer exitHooks.mu.Unlock()
	exitHooks.hooks = append(exitHooks.hooks, hook)
}

func runExitHooks() {
	exitHooks.mu.Lock()
	hooks := exitHooks.hooks
	exitHooks.hooks = nil
	exitHooks.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// Tool runs the top-level task of your program, watching for signals.
//
// The context passed to the task will contain a logger.
//
// If an interruption or termination signal arrives, the context passed to the
// task will be closed.
//
// Tool does not return. It exits with code 0 if the task returns nil, and
// with code 1 if the task returns an error, unless the error implements
// WithExitCode. Errors with exit code 0 are not logged.
//
// Any defer handlers installed before calling Tool are ignored. Use AtExit
// for cleanup that must happen on the way out.
//
// Example:
//
//	func main() {
//	    run.Tool(func(ctx context.Context) error {
//	        if err := Step1(ctx); err != nil {
//	            return err
//	        }
//	        return Step2(ctx)
//	    })
//	}
func Tool(task func(ctx context.Context) error) {
	os.Exit(tool(rootContext(), task))
}

func tool(ctx context.Context, task func(ctx context.Context) error) (code int) {
	defer runExitHooks()

	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("main", parallel.Exit, task)
		spawn("signals", parallel.Exit, handleSignals)
		return nil
	})

	code = ExitCode(err)
	if code != 0 {
		tlog.Get(ctx).Error("Error", zap.Error(err))
	}
	return code
}

// Server runs the top-level task of your program similar To Tool.
//
// The difference is in signal handling: if the top-level task exits with
// (possibly wrapped) context.Canceled while handling the signal, the program
// exits with code 0.
//
// Note that any other error returned during signal handling is still considered
// an error and makes Server exit with code 1.
func Server(task func(ctx context.Context) error) {
	Tool(serverTask(task))
}

func serverTask(task func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := task(ctx)
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}
}

// WithExitCode is an optional interface that can be implemented by an error.
//
// When a (possibly wrapped) error implementing WithExitCode reaches the top
// level, the value returned by the ExitCode method becomes the exit code of the
// process. The default exit code for other errors is 1.
type WithExitCode interface {
	ExitCode() int
}

// ExitCode returns the process exit code corresponding to the error
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var wec WithExitCode
	if errors.As(err, &wec) {
		return wec.ExitCode()
	}
	return 1
}

// cliConfig returns the Config derived from the command line
func cliConfig(args []string) tlog.Config {
	if err := fs.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	format := tlog.Format(must.OK1(fs.GetString("log-format")))
	if format != tlog.FormatJSON && format != tlog.FormatText {
		fmt.Fprintf(os.Stderr, "invalid --log-format value %q\n", format)
		os.Exit(2)
	}
	color, ok := tlog.ParseColor(must.OK1(fs.GetString("log-color")))
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid --log-color value %q\n", must.OK1(fs.GetString("log-color")))
		os.Exit(2)
	}

	return tlog.Config{
		Format:   format,
		Color:    color,
		Verbose:  must.OK1(fs.GetBool("debug")),
		Warnings: must.OK1(fs.GetBool("warn")),
	}
}

// loggingArgs returns the arguments the logging flags are read from. A CGI
// request carries no command line of its own, so nothing is parsed under CGI.
func loggingArgs(args []string, lookupEnv func(string) (string, bool)) []string {
	if _, cgi := lookupEnv(config.CGIIndicator); cgi {
		return nil
	}
	return args
}

func rootContext() context.Context {
	logger := tlog.New(cliConfig(loggingArgs(os.Args[1:], os.LookupEnv)))
	return tlog.WithLogger(context.Background(), logger)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) {
	return len(p), nil
}
