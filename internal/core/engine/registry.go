package engine

import (
	"fmt"
	"sort"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/source"
)

// Registry maps entity kinds to their data sources. It is built once and
// never mutated afterwards.
type Registry struct {
	sources map[core.EntityKind]source.Source
	kinds   []core.EntityKind
}

// NewRegistry builds a registry from the provided sources. Each source must
// serve a supported kind and no kind may be registered twice.
func NewRegistry(sources ...source.Source) (*Registry, error) {
	r := &Registry{sources: make(map[core.EntityKind]source.Source, len(sources))}
	for _, src := range sources {
		if src == nil {
			continue
		}
		kind := src.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("source %T serves unsupported kind %q", src, kind)
		}
		if _, exists := r.sources[kind]; exists {
			return nil, fmt.Errorf("duplicate source for kind %q", kind)
		}
		r.sources[kind] = src
		r.kinds = append(r.kinds, kind)
	}
	sort.Slice(r.kinds, func(i, j int) bool { return r.kinds[i] < r.kinds[j] })
	return r, nil
}

// Resolve returns the source registered for kind.
func (r *Registry) Resolve(kind core.EntityKind) (source.Source, error) {
	if r != nil {
		if src, ok := r.sources[kind]; ok {
			return src, nil
		}
	}
	return nil, core.Errorf(core.ErrUnknownEntityKind, "no data source is registered for %q", kind)
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []core.EntityKind {
	if r == nil {
		return nil
	}
	out := make([]core.EntityKind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Describe returns the source description for kind, or an empty string.
func (r *Registry) Describe(kind core.EntityKind) string {
	src, err := r.Resolve(kind)
	if err != nil {
		return ""
	}
	return src.Describe()
}
