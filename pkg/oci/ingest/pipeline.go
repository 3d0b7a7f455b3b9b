// Package ingest runs the OCI sync: resource stages per region, then link
// stages that join what the resource stages collected.
package ingest

import (
	"context"
	"fmt"
	"strings"
)

type Scope int

const (
	// ScopeRegional stages run once per synced region.
	ScopeRegional Scope = iota
	// ScopeTenancy stages run once, after every region.
	ScopeTenancy
)

func (s Scope) String() string {
	if s == ScopeTenancy {
		return "tenancy"
	}
	return "regional"
}

// StageFunc does the work of one stage and reports how many records or links it wrote.
type StageFunc func(ctx context.Context, env *Env) (int, error)

type Stage struct {
	Name  string
	Scope Scope
	// Resource is the kind a resource stage syncs. Link stages leave it empty
	// and run whenever their prerequisites did.
	Resource string
	Requires []string
	Run      StageFunc
}

// Service is the part of the name before the slash, e.g. "network".
func (s Stage) Service() string {
	service, _, _ := strings.Cut(s.Name, "/")
	return service
}

// Pipeline is a validated stage list in execution order.
type Pipeline struct {
	stages []Stage
	byName map[string]Stage
}

// NewPipeline orders stages so each runs after its prerequisites. Among
// stages that are ready at the same time, declaration order wins.
func NewPipeline(stages ...Stage) (*Pipeline, error) {
	byName := make(map[string]Stage, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if s.Run == nil {
			return nil, fmt.Errorf("stage %s has no run function", s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %s", s.Name)
		}
		byName[s.Name] = s
	}

	pending := make(map[string]int, len(stages))
	dependants := make(map[string][]string)
	for _, s := range stages {
		for _, req := range s.Requires {
			dep, ok := byName[req]
			if !ok {
				return nil, fmt.Errorf("stage %s requires unknown stage %s", s.Name, req)
			}
			if s.Scope == ScopeRegional && dep.Scope == ScopeTenancy {
				return nil, fmt.Errorf("regional stage %s cannot require tenancy stage %s", s.Name, req)
			}
			pending[s.Name]++
			dependants[req] = append(dependants[req], s.Name)
		}
	}

	ordered := make([]Stage, 0, len(stages))
	done := make(map[string]bool, len(stages))
	for len(ordered) < len(stages) {
		next := -1
		for i, s := range stages {
			if !done[s.Name] && pending[s.Name] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("stage dependency cycle among %s", strings.Join(remaining(stages, done), ", "))
		}
		s := stages[next]
		done[s.Name] = true
		ordered = append(ordered, s)
		for _, d := range dependants[s.Name] {
			pending[d]--
		}
	}

	// regional stages first so a tenancy stage never lands between two regional ones
	sorted := make([]Stage, 0, len(ordered))
	for _, scope := range []Scope{ScopeRegional, ScopeTenancy} {
		for _, s := range ordered {
			if s.Scope == scope {
				sorted = append(sorted, s)
			}
		}
	}
	return &Pipeline{stages: sorted, byName: byName}, nil
}

func remaining(stages []Stage, done map[string]bool) []string {
	out := make([]string, 0)
	for _, s := range stages {
		if !done[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

func (p *Pipeline) scoped(scope Scope) []Stage {
	out := make([]Stage, 0, len(p.stages))
	for _, s := range p.stages {
		if s.Scope == scope {
			out = append(out, s)
		}
	}
	return out
}

// Stage looks a stage up by name.
func (p *Pipeline) Stage(name string) (Stage, bool) {
	s, ok := p.byName[name]
	return s, ok
}

// Matches reports whether a resource selector names this stage, its service or its kind.
func (s Stage) Matches(selector string) bool {
	return selector == s.Name || selector == s.Service() || (s.Resource != "" && selector == s.Resource)
}
