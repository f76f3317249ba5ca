package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/openjudge/content-evaluator/internal/models"
	"go.yaml.in/yaml/v3"
)

// Registry is the immutable set of schemes the service evaluates against.
// It is fully validated at construction and safe for concurrent reads.
type Registry struct {
	schemes map[string]*Schema
	order   []string
}

// NewRegistry validates the scheme set and builds the registry. Any
// invariant violation (duplicate ids, unresolved or cyclic dependencies,
// bad ranges) is a construction error: the service must refuse to start.
func NewRegistry(schemes []*Schema) (*Registry, error) {
	r := &Registry{schemes: make(map[string]*Schema, len(schemes))}

	for _, s := range schemes {
		s.normalize()
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.schemes[s.ID]; exists {
			return nil, fmt.Errorf("duplicate scheme id %q", s.ID)
		}
		r.schemes[s.ID] = s
		r.order = append(r.order, s.ID)
	}

	for _, s := range r.schemes {
		for _, dep := range s.Dependencies {
			if _, ok := r.schemes[dep]; !ok {
				return nil, fmt.Errorf("scheme %s: dependency %q not found", s.ID, dep)
			}
		}
	}

	if err := r.checkAcyclic(); err != nil {
		return nil, err
	}

	for _, s := range r.schemes {
		if s.Kind != KindDerived {
			continue
		}
		if err := r.checkDimensions(s); err != nil {
			return nil, err
		}
	}

	sort.Strings(r.order)
	return r, nil
}

// LoadDir reads every *.yaml file in dir into the registry. A file that
// fails to parse or collides on id fails the whole load.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemes dir %s: %w", dir, err)
	}

	var schemes []*Schema
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read scheme %s: %w", path, err)
		}
		var s Schema
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse scheme %s: %w", path, err)
		}
		schemes = append(schemes, &s)
	}

	return NewRegistry(schemes)
}

func (r *Registry) Get(id string) (*Schema, bool) {
	s, ok := r.schemes[id]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.schemes)
}

// ListFilter narrows the scheme listing. The zero value lists every
// non-part scheme.
type ListFilter struct {
	Kind         Kind
	IncludeParts bool
	ContextType  models.ContextType
}

// List returns the matching schemes in id order.
func (r *Registry) List(f ListFilter) []*Schema {
	var out []*Schema
	for _, id := range r.order {
		s := r.schemes[id]
		if !f.IncludeParts && s.IsPart() {
			continue
		}
		if f.Kind != "" && s.Kind != f.Kind {
			continue
		}
		if f.ContextType != "" && !s.matchesContext(f.ContextType, r.Get) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// checkAcyclic rejects dependency cycles with a DFS over the graph.
func (r *Registry) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.schemes))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle involving scheme %q (path %v)", id, path)
		}
		state[id] = visiting
		for _, dep := range r.schemes[id].Dependencies {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for id := range r.schemes {
		if err := visit(id, nil); err != nil {
			return err
		}
	}
	return nil
}

// checkDimensions ensures every dimension referenced by a derived rule is
// produced by some dependency, transitively.
func (r *Registry) checkDimensions(s *Schema) error {
	produced := make(map[string]bool)
	var collect func(id string)
	collect = func(id string) {
		dep := r.schemes[id]
		produced[dep.Dimension] = true
		for _, sub := range dep.Dependencies {
			collect(sub)
		}
	}
	for _, dep := range s.Dependencies {
		collect(dep)
	}

	for _, rule := range s.Rules {
		for _, cond := range rule.Conditions {
			if !produced[cond.Dimension] {
				return fmt.Errorf("scheme %s: condition dimension %q not produced by any dependency", s.ID, cond.Dimension)
			}
		}
		for dim := range rule.Weights {
			if !produced[dim] {
				return fmt.Errorf("scheme %s: weight dimension %q not produced by any dependency", s.ID, dim)
			}
		}
	}
	return nil
}
