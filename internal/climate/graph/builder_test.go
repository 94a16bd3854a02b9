package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

type counter struct {
	visits int
	next   string
}

func step(c *counter) error {
	c.visits++
	return nil
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder[*counter]
		wantErr string
	}{
		{
			name: "dangling edge",
			build: func() *Builder[*counter] {
				return NewBuilder[*counter]().AddNode("a", step).SetEntry("a").AddEdge("a", "b")
			},
			wantErr: `unknown node "b"`,
		},
		{
			name: "no exit",
			build: func() *Builder[*counter] {
				return NewBuilder[*counter]().AddNode("a", step).SetEntry("a")
			},
			wantErr: "no outgoing edge",
		},
		{
			name: "unreachable node",
			build: func() *Builder[*counter] {
				return NewBuilder[*counter]().
					AddNode("a", step).AddNode("orphan", step).
					SetEntry("a").AddEdge("a", End).AddEdge("orphan", End)
			},
			wantErr: `"orphan" is unreachable`,
		},
		{
			name: "duplicate node",
			build: func() *Builder[*counter] {
				return NewBuilder[*counter]().AddNode("a", step).AddNode("a", step).SetEntry("a").AddEdge("a", End)
			},
			wantErr: "duplicate node",
		},
		{
			name: "two exits",
			build: func() *Builder[*counter] {
				return NewBuilder[*counter]().AddNode("a", step).SetEntry("a").AddEdge("a", End).AddEdge("a", End)
			},
			wantErr: "already has an outgoing edge",
		},
		{
			name: "missing entry",
			build: func() *Builder[*counter] {
				return NewBuilder[*counter]().AddNode("a", step).AddEdge("a", End)
			},
			wantErr: "entry node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			if !errors.Is(err, ErrInvalidGraph) {
				t.Fatalf("Compile() error = %v, want ErrInvalidGraph", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Compile() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGraph_RunRoutes(t *testing.T) {
	g, err := NewBuilder[*counter]().
		AddNode("start", step).
		AddNode("left", step).
		AddNode("right", step).
		SetEntry("start").
		AddConditionalEdge("start", func(c *counter) string { return c.next }, "left", "right").
		AddEdge("left", End).
		AddEdge("right", End).
		Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	c := &counter{next: "right"}
	path, err := g.Run(c)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Join(path, ",") != "start,right" || c.visits != 2 {
		t.Errorf("path = %v, visits = %d", path, c.visits)
	}

	_, err = g.Run(&counter{next: "sideways"})
	if !errors.Is(err, ErrUnknownRoute) {
		t.Errorf("Run() error = %v, want ErrUnknownRoute", err)
	}
	if got := climate.SourceNode(err, ""); got != "start" {
		t.Errorf("SourceNode = %q, want start", got)
	}
}

func TestGraph_StepLimit(t *testing.T) {
	g, err := NewBuilder[*counter]().
		AddNode("ping", step).AddNode("pong", step).
		SetEntry("ping").AddEdge("ping", "pong").AddEdge("pong", "ping").
		Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	c := &counter{}
	_, err = g.Run(c)
	if !errors.Is(err, ErrMaxSteps) {
		t.Fatalf("Run() error = %v, want ErrMaxSteps", err)
	}
	if c.visits != defaultMaxSteps {
		t.Errorf("visits = %d, want %d", c.visits, defaultMaxSteps)
	}
}

func TestGraph_NodeFailure(t *testing.T) {
	boom := errors.New("boom")
	g, err := NewBuilder[*counter]().
		AddNode("ok", step).
		AddNode("fails", func(*counter) error { return boom }).
		AddNode("panics", func(*counter) error { panic("kaput") }).
		SetEntry("ok").
		AddConditionalEdge("ok", func(c *counter) string { return c.next }, "fails", "panics").
		AddEdge("fails", End).
		AddEdge("panics", End).
		Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	path, err := g.Run(&counter{next: "fails"})
	if !errors.Is(err, boom) || climate.SourceNode(err, "") != "fails" {
		t.Errorf("Run() error = %v", err)
	}
	if len(path) != 2 {
		t.Errorf("path = %v, want failing node included", path)
	}

	_, err = g.Run(&counter{next: "panics"})
	if !errors.Is(err, climate.ErrEvaluationPanic) || climate.SourceNode(err, "") != "panics" {
		t.Errorf("Run() error = %v, want panic attributed to node", err)
	}
}
