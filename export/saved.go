// Package export persists inference graphs: a saved-graph directory with
// a JSON description plus a human-readable summary, and a quantized flat
// binary artifact for embedded targets.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"streamconv/graph"
)

const (
	// SummaryFile is the human-readable companion of a saved graph.
	SummaryFile = "model_summary.txt"
	// GraphFile holds the full JSON description of a saved graph.
	GraphFile = "saved_graph.json"

	formatVersion = "1.0.0"
	framework     = "streamconv"
)

// savedNode is one layer of a saved graph: its configuration record and
// the names of the tensors feeding it.
type savedNode struct {
	Config  graph.Config `json:"config"`
	Inbound []string     `json:"inbound"`
}

// savedGraph is the on-disk description of a functional graph.
type savedGraph struct {
	Metadata     metadata           `json:"metadata"`
	Name         string             `json:"name"`
	Inputs       []graph.TensorSpec `json:"inputs"`
	Outputs      []string           `json:"outputs"`
	StateInputs  []graph.TensorSpec `json:"state_inputs,omitempty"`
	StateOutputs []graph.TensorSpec `json:"state_outputs,omitempty"`
	Nodes        []savedNode        `json:"nodes"`
	Weights      []*graph.Parameter `json:"weights"`
}

type metadata struct {
	Version   string    `json:"version"`
	Framework string    `json:"framework"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Save writes g into dir as a saved-graph directory. Only functional
// graphs carry the explicit wiring the format needs.
func Save(g *graph.Graph, dir string) error {
	if g.Kind() != graph.Functional {
		return fmt.Errorf("only functional graphs can be saved, got %s", g.Kind())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create saved graph directory: %w", err)
	}

	sg := savedGraph{
		Metadata: metadata{
			Version:   formatVersion,
			Framework: framework,
			ID:        uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		},
		Name:         g.Name(),
		Inputs:       g.Inputs(),
		StateInputs:  g.StateInputs(),
		StateOutputs: g.StateOutputs(),
		Weights:      g.Params(),
	}
	for _, out := range g.Outputs() {
		sg.Outputs = append(sg.Outputs, out.Name)
	}
	for _, n := range g.Nodes() {
		sg.Nodes = append(sg.Nodes, savedNode{Config: n.Layer.Config(), Inbound: n.Inbound})
	}

	if err := os.WriteFile(filepath.Join(dir, SummaryFile), []byte(g.Summary()), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, GraphFile))
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sg); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// Load rebuilds a graph from a saved-graph directory, re-instantiating
// every layer through the registry and restoring its parameter values.
func Load(dir string) (*graph.Graph, error) {
	f, err := os.Open(filepath.Join(dir, GraphFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	var sg savedGraph
	if err := json.NewDecoder(f).Decode(&sg); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	b := graph.NewBuilder(sg.Name)
	for _, spec := range sg.Inputs {
		b.Input(spec)
	}
	for _, n := range sg.Nodes {
		l, err := graph.FromConfig(n.Config)
		if err != nil {
			return nil, err
		}
		b.Add(l, n.Inbound...)
	}
	for _, out := range sg.Outputs {
		b.Output(out)
	}
	g, err := b.Build()
	if err != nil {
		return nil, err
	}

	params := g.Params()
	if len(params) != len(sg.Weights) {
		return nil, fmt.Errorf("saved graph has %d weight tensors, rebuilt graph has %d parameters", len(sg.Weights), len(params))
	}
	for i, w := range sg.Weights {
		if err := w.CheckShape(); err != nil {
			return nil, err
		}
		if !graph.ShapeEqual(w.Shape, params[i].Shape) {
			return nil, fmt.Errorf("weight %s shape %v does not fit parameter %s shape %v", w.Name, w.Shape, params[i].Name, params[i].Shape)
		}
		copy(params[i].Data, w.Data)
	}

	g.SetStateBoundary(sg.StateInputs, sg.StateOutputs)
	return g, nil
}
