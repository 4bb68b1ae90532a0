package router

import (
	"context"
	"fmt"
)

// Stage is the unit the request pipeline orchestrates, adapted from the
// teacher's tools.Tool/BaggagePipeline: a named step with declared
// dependencies, executed in dependency order against a single shared
// request-scoped value (Baggage here, the teacher's
// map[string]interface{} there). Scope Resolver and Signal Extractor are
// mutually independent leaves scheduled together here; Evidence
// Retriever also implements Stage, but the smart-router facade invokes it by direct method call instead
// of registering it in this pipeline, because a scope mutation has to
// happen between the leaves and evidence retrieval (spec.md §4.5 step
// 3) that the generic Baggage-only DAG has no hook for.
type Stage interface {
	Name() string
	Dependencies() []string
	Process(ctx context.Context, b *Baggage) error
}

// requestPipeline runs a fixed set of Stages in dependency order.
type requestPipeline struct {
	stages map[string]Stage
	order  []string
}

func newRequestPipeline(stages ...Stage) (*requestPipeline, error) {
	p := &requestPipeline{stages: make(map[string]Stage, len(stages))}
	for _, s := range stages {
		if _, exists := p.stages[s.Name()]; exists {
			return nil, fmt.Errorf("stage %s already registered", s.Name())
		}
		p.stages[s.Name()] = s
	}
	order, err := topologicalSort(p.stages)
	if err != nil {
		return nil, err
	}
	p.order = order
	return p, nil
}

// topologicalSort is Kahn's algorithm, carried over from the teacher's
// BaggagePipeline.topologicalSort.
func topologicalSort(stages map[string]Stage) ([]string, error) {
	adjList := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range stages {
		adjList[name] = []string{}
		inDegree[name] = 0
	}

	for name, stage := range stages {
		for _, dep := range stage.Dependencies() {
			if _, ok := stages[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on %s, but %s is not registered", name, dep, dep)
			}
			adjList[dep] = append(adjList[dep], name)
			inDegree[name]++
		}
	}

	queue := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(stages))
	for len(queue) > 0 {
		// Deterministic iteration: pick lexically smallest ready node so
		// stage order is reproducible across runs (idempotence, §8
		// invariant 8).
		minIdx := 0
		for i, n := range queue {
			if n < queue[minIdx] {
				minIdx = i
			}
		}
		name := queue[minIdx]
		queue = append(queue[:minIdx], queue[minIdx+1:]...)
		order = append(order, name)

		for _, next := range adjList[name] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(stages) {
		return nil, fmt.Errorf("circular dependency detected among stages")
	}
	return order, nil
}

// Execute runs every stage in dependency order, stopping at the first
// error (a Stage should itself recover backend errors into Baggage
// fields per spec.md §7 rather than returning one, so a returned error
// here indicates a programming bug, not a routing outcome).
func (p *requestPipeline) Execute(ctx context.Context, b *Baggage) error {
	for _, name := range p.order {
		if err := p.stages[name].Process(ctx, b); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}
	return nil
}
