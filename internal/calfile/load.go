package calfile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/slotguard/internal/calendar"
)

//go:embed schema.cue
var schemaCUE string

// LoadError reports a problem in an event file.
type LoadError struct {
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Option configures loading.
type Option func(*options)

type options struct {
	defaultOwner string
}

// WithDefaultOwner sets the owner for ICS events that name none.
func WithDefaultOwner(owner string) Option {
	return func(o *options) { o.defaultOwner = owner }
}

// Load reads the events in path. The format follows the extension:
// .yaml/.yml, .json or .ics.
func Load(path string, opts ...Option) ([]calendar.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return Parse(path, data, opts...)
}

// Parse decodes data using the format implied by name's extension.
func Parse(name string, data []byte, opts ...Option) ([]calendar.Event, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return parseDocument(name, data, true)
	case ".json":
		return parseDocument(name, data, false)
	case ".ics", ".ical":
		return ParseICS(name, strings.NewReader(string(data)), o.defaultOwner)
	default:
		return nil, fmt.Errorf("unsupported event file %q: want .yaml, .yml, .json or .ics", name)
	}
}

// The CUE runtime is not safe for concurrent use; schema compilation and
// every unification share one context under schemaMu.
var (
	schemaOnce sync.Once
	schemaMu   sync.Mutex
	cueCtx     *cue.Context
	fileSchema cue.Value
	schemaErr  error
)

func loadSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		cueCtx = cuecontext.New()
		v := cueCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile event schema: %w", err)
			return
		}
		fileSchema = v.LookupPath(cue.ParsePath("#File"))
	})
	return fileSchema, schemaErr
}

type document struct {
	Events []calendar.Event `json:"events"`
}

func parseDocument(name string, data []byte, isYAML bool) ([]calendar.Event, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	var v cue.Value
	if isYAML {
		f, err := cueyaml.Extract(name, data)
		if err != nil {
			return nil, cueError(err)
		}
		v = cueCtx.BuildFile(f)
	} else {
		v = cueCtx.CompileBytes(data, cue.Filename(name))
	}
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}

	var doc document
	if err := v.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	for _, e := range doc.Events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return doc.Events, nil
}

// cueError keeps the first CUE error and its position.
func cueError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
