package bench

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	berrors "github.com/paveg/tablebench/internal/errors"
)

// Loader turns benchmark files into definitions.
type Loader struct {
	registry *Registry
	env      Env
}

// NewLoader creates a loader resolving kinds through registry.
func NewLoader(registry *Registry, env Env) *Loader {
	return &Loader{registry: registry, env: env}
}

// Env returns the environment passed to factories.
func (l *Loader) Env() Env {
	return l.env
}

// Load reads the benchmark file at path and builds its definition, performing untimed
// setup. Unreadable files are resource errors; anything that does not yield a well-formed
// definition is a definition error.
func (l *Loader) Load(ctx context.Context, path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "benchmark file is not readable"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "benchmark file does not exist"
		}
		return nil, berrors.NewResourceError("load", path, msg, err)
	}

	spec, err := ParseFileSpec(data)
	if err != nil {
		return nil, berrors.NewDefinitionError(path, "parsing benchmark file", err)
	}
	spec = spec.WithTag(l.env.Tag)

	factory, ok := l.registry.Lookup(spec.Kind)
	if !ok {
		return nil, berrors.NewDefinitionError(spec.Name,
			fmt.Sprintf("unknown kind %q (known: %s)", spec.Kind, strings.Join(l.registry.Kinds(), ", ")), nil)
	}

	def, err := factory(ctx, l.env, spec)
	if err != nil {
		var be *berrors.BenchError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, berrors.NewDefinitionError(spec.Name, "building definition", err)
	}
	if def == nil || def.Run == nil {
		if def != nil && def.Cleanup != nil {
			_ = def.Cleanup()
		}
		return nil, berrors.NewDefinitionError(spec.Name, "definition has no operation", nil)
	}
	if def.Name == "" {
		def.Name = spec.Name
	}
	return def, nil
}
