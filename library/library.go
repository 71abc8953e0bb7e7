// Package library implements the load path and the "require" and "eval"
// command-line side effects.
//
// A library is a named initialization routine run before the application is
// loaded. Libraries compiled into the binary register themselves from an
// init function, the same way database/sql drivers do:
//
//	func init() {
//	    library.Register("metrics", setupMetrics)
//	}
//
// Libraries that are not compiled in are looked up on the load path as Go
// plugins: for a library "foo", every directory on the load path is searched
// for "foo.so". A plugin may export "Init func() error", which is called once
// the plugin is opened.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sync"
)

// InitSymbol is the name of the optional initialization function exported by
// plugin libraries
const InitSymbol = "Init"

var registry struct {
	mu   sync.Mutex
	libs map[string]func() error
}

// Register makes a compiled-in library available to Require. Registering the
// same name twice panics.
func Register(name string, init func() error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.libs == nil {
		registry.libs = map[string]func() error{}
	}
	if _, ok := registry.libs[name]; ok {
		panic(fmt.Sprintf("library %q registered twice", name))
	}
	registry.libs[name] = init
}

func lookup(name string) (func() error, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	init, ok := registry.libs[name]
	return init, ok
}

// ErrNotFound is the cause of RequireError when the library is neither
// compiled in nor present on the load path
var ErrNotFound = errors.New("no such library")

// RequireError means that a library could not be loaded
type RequireError struct {
	Name  string
	Cause error
}

func (e RequireError) Error() string {
	return fmt.Sprintf("cannot load library %q: %s", e.Name, e.Cause)
}

func (e RequireError) Unwrap() error {
	return e.Cause
}

// Evaluator is the hook behind the "eval" command-line option.
//
// Evaluating source code requires an embedded interpreter, so no evaluator is
// installed by default. Programs that embed one can install it in the Loader.
type Evaluator interface {
	Eval(line string, lineno int) error
}

// ErrEvalUnsupported is returned by Eval when no Evaluator is installed
var ErrEvalUnsupported = errors.New("inline code evaluation is not supported by this build")

// Loader keeps the load path and the set of loaded libraries of a process
type Loader struct {
	// Evaluator, if set, receives the lines passed with --eval
	Evaluator Evaluator

	// Open opens a plugin file; plugin.Open by default
	Open func(path string) (Plugin, error)

	loadPath []string
	loaded   map[string]bool
	lineno   int
}

// Plugin is the part of *plugin.Plugin used by the Loader
type Plugin interface {
	Lookup(symName string) (plugin.Symbol, error)
}

// LoadPath returns the current load path, searched in order
func (l *Loader) LoadPath() []string {
	return append([]string(nil), l.loadPath...)
}

// Prepend puts directories in front of the load path, keeping their order
func (l *Loader) Prepend(dirs ...string) {
	l.loadPath = append(append([]string(nil), dirs...), l.loadPath...)
}

// Require loads the named library unless it was already loaded by this Loader
func (l *Loader) Require(name string) error {
	if l.loaded[name] {
		return nil
	}
	if err := l.load(name); err != nil {
		return RequireError{Name: name, Cause: err}
	}
	if l.loaded == nil {
		l.loaded = map[string]bool{}
	}
	l.loaded[name] = true
	return nil
}

func (l *Loader) load(name string) error {
	if init, ok := lookup(name); ok {
		return init()
	}

	for _, dir := range l.loadPath {
		path := filepath.Join(dir, name+".so")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return l.openPlugin(path)
	}
	return ErrNotFound
}

func (l *Loader) openPlugin(path string) error {
	open := l.Open
	if open == nil {
		open = func(path string) (Plugin, error) {
			return plugin.Open(path)
		}
	}

	p, err := open(path)
	if err != nil {
		return err
	}
	sym, err := p.Lookup(InitSymbol)
	if err != nil {
		return nil // Init is optional
	}
	// Lookup returns functions as values and variables as pointers
	switch init := sym.(type) {
	case func() error:
		return init()
	case *func() error:
		return (*init)()
	default:
		return fmt.Errorf("%s: symbol %s is %T, not func() error", path, InitSymbol, sym)
	}
}

// Eval passes a line of code to the installed Evaluator. Lines are numbered
// from 1 in the order they are passed.
func (l *Loader) Eval(line string) error {
	if l.Evaluator == nil {
		return ErrEvalUnsupported
	}
	l.lineno++
	return l.Evaluator.Eval(line, l.lineno)
}
