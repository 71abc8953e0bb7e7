package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ridge/launch/thttp"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Names of the environments every Registry knows
const (
	Deployment  = "deployment"
	Development = "development"
)

// ErrSealed is returned by Use once the registry has been read
var ErrSealed = errors.New("middleware registry is already in use")

// Registry maps environment names to middleware stacks.
//
// The stacks are assembled on first read and do not change afterwards:
//
//	deployment:  access log (left out under CGI handlers)
//	development: deployment stack, ShowExceptions, Lint
//
// Descriptors added with Use before that are appended to the stack of their
// environment. The development stack is derived from the final deployment
// one, so additions to deployment show up in development too.
type Registry struct {
	log io.Writer

	mu     sync.Mutex
	staged map[string][]Descriptor
	sealed bool

	once   sync.Once
	stacks map[string][]Descriptor
}

// NewRegistry creates a Registry whose access log layer writes to log
func NewRegistry(log io.Writer) *Registry {
	return &Registry{
		log:    log,
		staged: map[string][]Descriptor{},
	}
}

// Use appends descriptors to the stack of the environment
func (r *Registry) Use(env string, descriptors ...Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	r.staged[env] = append(r.staged[env], descriptors...)
	return nil
}

// ForEnvironment returns a copy of the stack of the environment, or an empty
// list if the environment is unknown
func (r *Registry) ForEnvironment(env string) []Descriptor {
	r.seal()
	return slices.Clone(r.stacks[env])
}

// Environments returns the names of the known environments, sorted
func (r *Registry) Environments() []string {
	r.seal()
	names := maps.Keys(r.stacks)
	slices.Sort(names)
	return names
}

func (r *Registry) seal() {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.sealed = true

		stacks := map[string][]Descriptor{}
		for env, descriptors := range r.staged {
			stacks[env] = slices.Clone(descriptors)
		}
		deployment := append([]Descriptor{Producer(r.loggingUnlessCGI)}, r.staged[Deployment]...)
		stacks[Deployment] = deployment
		stacks[Development] = append(append(slices.Clone(deployment),
			Func("ShowExceptions", thttp.ShowExceptions),
			Func("Lint", thttp.Lint),
		), r.staged[Development]...)
		r.stacks = stacks
	})
}

func (r *Registry) loggingUnlessCGI(srv Server) (Entry, bool) {
	if srv != nil && strings.Contains(srv.Name(), "CGI") {
		return Entry{}, false
	}
	return Entry{Name: "CommonLogger", New: commonLogger, Args: []any{r.log}}, true
}

func commonLogger(inner http.Handler, args ...any) (http.Handler, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	out, ok := args[0].(io.Writer)
	if !ok {
		return nil, fmt.Errorf("expected an io.Writer, got %T", args[0])
	}
	return thttp.CommonLogger(out)(inner), nil
}
