package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ridge/launch/library"
	"github.com/spf13/pflag"
)

// Version is printed by --version
const Version = "1.0.0"

const banner = "Usage: launch [options] [config file]"

// Parser parses the command line into Options.
//
// The zero value is ready to use and works on the real process environment.
// Flags with side effects (--eval, --include, --require) act immediately
// while the command line is being parsed, in the order they are given.
//
// A Parser keeps its flag set after Parse, so that options embedded into the
// configuration file can be applied to the same Options with ParseEmbedded.
type Parser struct {
	// LookupEnv reads the process environment; os.LookupEnv by default
	LookupEnv func(key string) (string, bool)
	// Getwd returns the directory relative paths are resolved against;
	// os.Getwd by default
	Getwd func() (string, error)
	// Stdout receives --help and --version output; os.Stdout by default
	Stdout io.Writer
	// Stderr receives usage after a bad command line; os.Stderr by default
	Stderr io.Writer
	// Library executes --include, --require and --eval; a fresh Loader by
	// default
	Library *library.Loader
	// Extra flags defined elsewhere in the program, accepted and parsed
	// along with the launch flags
	Extra *pflag.FlagSet

	fs    *pflag.FlagSet
	wd    string
	fatal error
}

// Parse parses the command line (without the program name).
//
// When the process runs as a CGI script the arguments are ignored: a web
// server may pass ISINDEX query terms as arguments, and these must not be
// interpreted as options.
func (p *Parser) Parse(args []string) (*Options, error) {
	wd, err := p.getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	p.wd = wd
	if p.Library == nil {
		p.Library = &library.Loader{}
	}

	opts := Defaults(wd)
	p.fs = p.flagSet(&opts)

	if _, cgi := p.lookupEnv(CGIIndicator); cgi {
		args = nil
	}

	if err := p.parse(args); err != nil {
		return nil, err
	}
	if rest := p.fs.Args(); len(rest) > 0 {
		opts.ConfigFile = resolve(wd, rest[len(rest)-1])
	}
	return &opts, nil
}

// ParseEmbedded applies options found in the configuration file to the
// Options returned by Parse. Positional arguments are not allowed there.
func (p *Parser) ParseEmbedded(args []string) error {
	if p.fs == nil {
		panic("ParseEmbedded called before Parse")
	}
	if err := p.parse(args); err != nil {
		return err
	}
	if rest := p.fs.Args(); len(rest) > 0 {
		return p.usageError(fmt.Errorf("unexpected argument %q in embedded options", rest[0]))
	}
	return nil
}

// Usage returns the help text
func (p *Parser) Usage() string {
	fs := p.fs
	if fs == nil {
		opts := Defaults("")
		fs = p.flagSet(&opts)
	}
	return banner + "\n\n" + fs.FlagUsagesWrapped(80)
}

func (p *Parser) parse(args []string) error {
	p.fatal = nil
	err := p.fs.Parse(args)
	if p.fatal != nil {
		return p.fatal
	}
	if err != nil {
		return p.usageError(err)
	}
	return nil
}

func (p *Parser) usageError(err error) error {
	fmt.Fprintf(p.stderr(), "%s\n\n%s", err, p.Usage())
	return ConfigurationError{Cause: err}
}

func (p *Parser) flagSet(opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("launch", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.VarP(p.action("string", func(line string) error {
		return p.Library.Eval(line)
	}), "eval", "e", "evaluate a `LINE` of code (requires an evaluator in the build)")
	fs.BoolVarP(&opts.Debug, "debug", "d", false, "set debugging flags (debug level logging)")
	fs.BoolVarP(&opts.Warnings, "warn", "w", false, "turn warnings on (stack traces on warnings)")
	fs.VarP(p.action("string", func(path string) error {
		dirs := filepath.SplitList(path)
		opts.LoadPath = append(append([]string(nil), dirs...), opts.LoadPath...)
		p.Library.Prepend(dirs...)
		return nil
	}), "include", "I", "specify the library load `PATH` (may be used more than once)")
	fs.VarP(p.action("string", func(lib string) error {
		opts.Require = append(opts.Require, lib)
		return p.Library.Require(lib)
	}), "require", "r", "require the `LIBRARY` before loading the configuration")

	fs.StringVarP(&opts.Server, "server", "s", "", "serve using `SERVER` (standard/cgi/fastcgi)")
	fs.StringVarP(&opts.Host, "host", "o", DefaultHost, "listen on `HOST` (an absolute path is a UNIX socket)")
	fs.IntVarP(&opts.Port, "port", "p", DefaultPort, "use `PORT`")
	fs.StringVarP(&opts.Environment, "env", "E", DefaultEnvironment, "use `ENVIRONMENT` for defaults")
	fs.BoolVarP(&opts.Daemonize, "daemonize", "D", false, "run daemonized in the background")
	fs.VarP(p.action("string", func(path string) error {
		opts.PIDPath = resolve(p.wd, path)
		return nil
	}), "pid", "P", "`FILE` to store PID")
	fs.Var(p.action("string", func(path string) error {
		opts.AccessLog = append(opts.AccessLog, resolve(p.wd, path))
		return nil
	}), "access-log", "append access log lines to `FILE` (may be used more than once)")

	help := fs.VarPF(p.action("bool", func(string) error {
		fmt.Fprint(p.stdout(), p.Usage())
		return Exit{Reason: "help requested"}
	}), "help", "h", "show this message")
	help.NoOptDefVal = "true"
	version := fs.VarPF(p.action("bool", func(string) error {
		fmt.Fprintf(p.stdout(), "launch %s\n", Version)
		return Exit{Reason: "version requested"}
	}), "version", "", "show version")
	version.NoOptDefVal = "true"

	if p.Extra != nil {
		fs.AddFlagSet(p.Extra)
	}
	return fs
}

// action is a flag value that runs a function every time the flag is given.
//
// pflag flattens errors returned from Set into a message, so the original
// error is kept aside and returned from Parse as is. This stops the parsing
// at the failing flag.
type action struct {
	p   *Parser
	typ string
	fn  func(string) error
}

func (p *Parser) action(typ string, fn func(string) error) pflag.Value {
	return action{p: p, typ: typ, fn: fn}
}

func (a action) String() string {
	return ""
}

func (a action) Set(value string) error {
	err := a.fn(value)
	if err != nil {
		a.p.fatal = err
	}
	return err
}

func (a action) Type() string {
	return a.typ
}

func (p *Parser) lookupEnv(key string) (string, bool) {
	if p.LookupEnv != nil {
		return p.LookupEnv(key)
	}
	return os.LookupEnv(key)
}

func (p *Parser) getwd() (string, error) {
	if p.Getwd != nil {
		return p.Getwd()
	}
	return os.Getwd()
}

func (p *Parser) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

func (p *Parser) stderr() io.Writer {
	if p.Stderr != nil {
		return p.Stderr
	}
	return os.Stderr
}

func resolve(dir, path string) string {
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

// IsExit tells whether the error asks for a successful exit without running
// anything
func IsExit(err error) bool {
	var exit Exit
	return errors.As(err, &exit)
}
