// Package bench loads benchmark definitions, times them and drives batches of runs.
//
// A benchmark file is a YAML document naming a registered kind, the datasets it reads and
// kind-specific parameters. The kind's factory performs untimed setup and returns a
// Definition: a name, the timed operation and a cleanup action. The Runner times exactly
// the operation; the Driver repeats runs, samples the runtime and appends results.
package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/paveg/tablebench/internal/dataset"
)

// TagPlaceholder in a benchmark name or table file is replaced with the dataset tag.
// Inside a YAML flow mapping the value must be quoted, as its braces are flow indicators.
const TagPlaceholder = "${tag}"

// Definition is one ready-to-run benchmark. It is built fresh for every run and owned by
// the runner until cleanup completes.
type Definition struct {
	Name string
	// Run is the timed operation; it returns the number of result rows.
	Run func() (int64, error)
	// Cleanup releases setup state. It may be nil.
	Cleanup func() error
}

// Env is the configuration handed to every factory.
type Env struct {
	OutputPrefixPath string
	// Tag selects dataset sizes, e.g. "no-nulls-100m".
	Tag       string
	Allocator memory.Allocator
	Logger    *log.Logger
}

// DatasetPath resolves a dataset file under the output prefix.
func (e Env) DatasetPath(file string) string {
	return dataset.Path(e.OutputPrefixPath, file)
}

// Factory performs setup for a benchmark file and returns its definition.
type Factory func(ctx context.Context, env Env, spec FileSpec) (*Definition, error)

// FileSpec is a parsed benchmark file.
type FileSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Description is free text shown in reports.
	Description string `yaml:"description"`
	// Tables maps logical table names to dataset files under <prefix>/data.
	Tables map[string]string `yaml:"tables"`
	Params yaml.Node         `yaml:"params"`
}

// ParseFileSpec decodes a benchmark file. Unknown top-level fields are rejected.
func ParseFileSpec(data []byte) (FileSpec, error) {
	var spec FileSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return FileSpec{}, fmt.Errorf("benchmark file is empty")
		}
		return FileSpec{}, err
	}
	return spec, spec.Validate()
}

// Validate checks the fields every kind needs.
func (s FileSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(s.Kind) == "" {
		return fmt.Errorf("kind is required")
	}
	for logical, file := range s.Tables {
		if file == "" {
			return fmt.Errorf("table %q has no file", logical)
		}
	}
	return nil
}

// WithTag returns a copy with the tag placeholder expanded in the name and table files.
func (s FileSpec) WithTag(tag string) FileSpec {
	s.Name = strings.ReplaceAll(s.Name, TagPlaceholder, tag)
	tables := make(map[string]string, len(s.Tables))
	for logical, file := range s.Tables {
		tables[logical] = strings.ReplaceAll(file, TagPlaceholder, tag)
	}
	s.Tables = tables
	return s
}

// Table returns the dataset file bound to a logical table name.
func (s FileSpec) Table(logical string) (string, error) {
	file, ok := s.Tables[logical]
	if !ok {
		return "", fmt.Errorf("table %q is not declared", logical)
	}
	return file, nil
}

// DecodeParams decodes the params block into out, rejecting unknown fields.
func (s FileSpec) DecodeParams(out any) error {
	if s.Params.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(&s.Params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}

// Registry maps benchmark kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for kind.
func (r *Registry) Register(kind string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("benchmark kind %q is already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// MustRegister is Register that panics on duplicates.
func (r *Registry) MustRegister(kind string, factory Factory) {
	if err := r.Register(kind, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
