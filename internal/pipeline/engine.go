package pipeline

import (
	"context"
	"errors"
	"fmt"

	"FxDesk/internal/domain/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	ErrInvalidGraph = errors.New("pipeline: invalid graph")
	ErrStepLimit    = errors.New("pipeline: step limit exceeded")
)

// Node is one step of the graph. A non-nil error aborts the run; stage
// failures are returned as data in the update instead.
type Node func(ctx context.Context, s models.State) (models.Update, error)

// Branch is the outcome of a routing decision.
type Branch string

const (
	BranchContinue Branch = "continue"
	BranchEnd      Branch = "end"
)

// Router picks the branch to follow after a node has been merged.
type Router func(s models.State) Branch

// Observer receives a deep copy of the state after each node.
type Observer func(node models.StageName, snapshot models.State)

type transition struct {
	route   Router
	targets map[Branch]models.StageName
	guarded bool
}

// Graph collects nodes and transitions. Construction errors are kept and
// reported by Compile.
type Graph struct {
	nodes map[models.StageName]Node
	order []models.StageName
	edges map[models.StageName]transition
	entry models.StageName
	errs  []error
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[models.StageName]Node),
		edges: make(map[models.StageName]transition),
	}
}

func (g *Graph) AddNode(name models.StageName, n Node) *Graph {
	switch {
	case name == "" || name == models.StageEnd:
		g.errs = append(g.errs, fmt.Errorf("reserved node name %q", name))
	case n == nil:
		g.errs = append(g.errs, fmt.Errorf("node %s is nil", name))
	case g.nodes[name] != nil:
		g.errs = append(g.errs, fmt.Errorf("duplicate node %s", name))
	default:
		g.nodes[name] = n
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge adds an unconditional transition from -> to.
func (g *Graph) AddEdge(from, to models.StageName) *Graph {
	return g.addTransition(from, transition{
		route:   func(models.State) Branch { return BranchContinue },
		targets: map[Branch]models.StageName{BranchContinue: to},
	})
}

// AddConditionalEdge routes out of from according to route.
func (g *Graph) AddConditionalEdge(from models.StageName, route Router, targets map[Branch]models.StageName) *Graph {
	if route == nil {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %s has no router", from))
		return g
	}
	cp := make(map[Branch]models.StageName, len(targets))
	for b, t := range targets {
		cp[b] = t
	}
	return g.addTransition(from, transition{route: route, targets: cp, guarded: true})
}

func (g *Graph) addTransition(from models.StageName, t transition) *Graph {
	if _, ok := g.edges[from]; ok {
		g.errs = append(g.errs, fmt.Errorf("node %s already has an outgoing transition", from))
		return g
	}
	g.edges[from] = t
	return g
}

func (g *Graph) SetEntry(name models.StageName) *Graph {
	g.entry = name
	return g
}

// Compile validates the graph: the entry exists, every node has exactly one
// outgoing transition, every transition starts at a node and every target is
// a node or the end marker.
func (g *Graph) Compile(opts ...EngineOption) (*Engine, error) {
	errs := append([]error(nil), g.errs...)

	if g.entry == "" {
		errs = append(errs, errors.New("entry not set"))
	} else if g.nodes[g.entry] == nil {
		errs = append(errs, fmt.Errorf("entry %s is not a node", g.entry))
	}
	for _, name := range g.order {
		if _, ok := g.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("node %s has no outgoing transition", name))
		}
	}
	for from, t := range g.edges {
		if g.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("transition from unknown node %s", from))
		}
		if len(t.targets) == 0 {
			errs = append(errs, fmt.Errorf("transition from %s has no targets", from))
		}
		for b, to := range t.targets {
			if b != BranchContinue && b != BranchEnd {
				errs = append(errs, fmt.Errorf("transition from %s uses unknown branch %q", from, b))
			}
			if to != models.StageEnd && g.nodes[to] == nil {
				errs = append(errs, fmt.Errorf("transition %s -> %s targets unknown node", from, to))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
	}

	e := &Engine{
		nodes:  make(map[models.StageName]Node, len(g.nodes)),
		order:  append([]models.StageName(nil), g.order...),
		edges:  make(map[models.StageName]transition, len(g.edges)),
		entry:  g.entry,
		tracer: noop.NewTracerProvider().Tracer("pipeline"),
	}
	for k, v := range g.nodes {
		e.nodes[k] = v
	}
	for k, v := range g.edges {
		e.edges[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type EngineOption func(*Engine)

// WithTracer emits one span per executed node.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Engine executes a compiled graph. It is immutable and safe for concurrent runs.
type Engine struct {
	nodes  map[models.StageName]Node
	order  []models.StageName
	edges  map[models.StageName]transition
	entry  models.StageName
	tracer trace.Tracer
}

// Run drives the graph from the entry node until the end marker. Cancellation
// is checked before every node; the returned state is the last merged state.
func (e *Engine) Run(ctx context.Context, initial models.State, obs Observer) (models.State, error) {
	cur := initial
	node := e.entry

	for steps := 0; node != models.StageEnd; steps++ {
		if steps >= len(e.nodes)+1 {
			return cur, fmt.Errorf("%w at node %s", ErrStepLimit, node)
		}
		if err := ctx.Err(); err != nil {
			return cur, err
		}

		delta, err := e.exec(ctx, node, cur)
		if err != nil {
			return cur, fmt.Errorf("node %s: %w", node, err)
		}
		cur = Merge(cur, delta)

		if obs != nil {
			obs(node, cur.Clone())
		}

		t := e.edges[node]
		branch := t.route(cur)
		next, ok := t.targets[branch]
		if !ok {
			return cur, fmt.Errorf("%w: node %s has no target for branch %q", ErrInvalidGraph, node, branch)
		}
		node = next
	}
	return cur, nil
}

func (e *Engine) exec(ctx context.Context, name models.StageName, s models.State) (models.Update, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline."+name.String(),
		trace.WithAttributes(
			attribute.String("subject", s.Subject),
			attribute.Int("step", s.StepCount),
		))
	defer span.End()

	u, err := e.nodes[name](ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return u, err
	}
	if len(u.Errors) > 0 {
		span.SetAttributes(attribute.Int("stage_errors", len(u.Errors)))
	}
	return u, nil
}

// Nodes lists node names in insertion order.
func (e *Engine) Nodes() []models.StageName {
	return append([]models.StageName(nil), e.order...)
}

// Edges lists every transition target; conditional targets carry their branch.
func (e *Engine) Edges() []models.Edge {
	var out []models.Edge
	for _, from := range e.order {
		t := e.edges[from]
		for _, b := range []Branch{BranchContinue, BranchEnd} {
			to, ok := t.targets[b]
			if !ok {
				continue
			}
			edge := models.Edge{From: from, To: to}
			if t.guarded {
				edge.Condition = string(b)
			}
			out = append(out, edge)
		}
	}
	return out
}
