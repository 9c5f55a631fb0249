package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zoobzio/chainz"
)

// registry holds the named pipelines of the config file, compiled.
// Names are case-insensitive because config keys are.
type registry struct {
	pipelines map[string]*chainz.Pipeline
	sources   map[string]string
}

func newRegistry(defs map[string]string) (*registry, error) {
	r := &registry{
		pipelines: make(map[string]*chainz.Pipeline, len(defs)),
		sources:   make(map[string]string, len(defs)),
	}
	for name, expr := range defs {
		p, err := chainz.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", name, err)
		}
		key := strings.ToLower(name)
		r.pipelines[key] = p
		r.sources[key] = expr
	}
	return r, nil
}

// get returns a specific pipeline by name.
func (r *registry) get(name string) (*chainz.Pipeline, bool) {
	p, ok := r.pipelines[strings.ToLower(name)]
	return p, ok
}

// names returns all pipeline names in a consistent order.
func (r *registry) names() []string {
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *registry) source(name string) string {
	return r.sources[strings.ToLower(name)]
}
