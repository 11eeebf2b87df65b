package transform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/autoprep/internal/model"
)

// Func executes a transformer against one column. The dataset argument gives
// cross-column transformers a read-only view of the rest of the snapshot.
// A nil result column means the column is removed from the snapshot.
type Func func(ctx context.Context, col model.Column, params Params, dataset model.Dataset) (*model.Column, error)

// Registry maps transformer names to their specs and implementations.
// Reads are safe for concurrent use; registration is serialized.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
		funcs: make(map[string]Func),
	}
}

// Register adds a transformer. Names are unique for the registry lifetime.
func (r *Registry) Register(spec Spec, fn Func) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: empty transformer name", ErrInvalidParameter)
	}
	if fn == nil {
		return fmt.Errorf("%w: transformer %q has no implementation", ErrInvalidParameter, spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTransformer, spec.Name)
	}
	r.specs[spec.Name] = spec
	r.funcs[spec.Name] = fn
	return nil
}

// Get returns the spec for a registered transformer.
func (r *Registry) Get(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownTransformer, name)
	}
	return spec, nil
}

// Names returns all registered transformer names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns all registered specs, sorted by name.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Validate checks a recommendation against the dataset and the registry
// without executing anything: the column must exist, the transformer must be
// registered, the column type must be covered, and the parameters must pass
// the spec schema.
func (r *Registry) Validate(rec model.Recommendation, dataset model.Dataset) error {
	col, ok := dataset.Column(rec.Column)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, rec.Column)
	}

	spec, err := r.Get(rec.Transformer)
	if err != nil {
		return err
	}

	if !spec.AppliesTo(col.Type) {
		return fmt.Errorf("%w: %s does not apply to %s column %q",
			ErrTypeMismatch, rec.Transformer, col.Type, rec.Column)
	}

	if _, err := spec.ResolveParams(rec.Params); err != nil {
		return err
	}
	return nil
}

// Apply validates and executes a recommendation against the dataset. The
// returned column is the transformed replacement; nil means the column was
// removed, and a column under a new name is a derived feature that joins the
// snapshot alongside its source. Inputs are never mutated. Runtime failures,
// including panics in the transformer, come back wrapped in
// ErrTransformFailed.
func (r *Registry) Apply(ctx context.Context, rec model.Recommendation, dataset model.Dataset) (result *model.Column, err error) {
	if vErr := r.Validate(rec, dataset); vErr != nil {
		return nil, vErr
	}

	r.mu.RLock()
	spec := r.specs[rec.Transformer]
	fn := r.funcs[rec.Transformer]
	r.mu.RUnlock()

	params, err := spec.ResolveParams(rec.Params)
	if err != nil {
		return nil, err
	}

	col, _ := dataset.Column(rec.Column)

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("%w: %s on %q panicked: %v", ErrTransformFailed, spec.Name, col.Name, p)
		}
	}()

	out, err := fn(ctx, col.Clone(), params, dataset)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %q: %v", ErrTransformFailed, spec.Name, col.Name, err)
	}
	return out, nil
}

// DefaultRegistry returns a registry with every built-in transformer
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range builtins() {
		// Names are hard-coded and unique; a failure here is a
		// programming error.
		if err := r.Register(b.spec, b.fn); err != nil {
			panic(err)
		}
	}
	return r
}

type builtin struct {
	spec Spec
	fn   Func
}
