package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// registerGraphTools adds the graph solver tools to the solver manager.
func (m *SolverToolManager) registerGraphTools() {
	m.RegisterTool("solve_shortest_path", "Find the shortest path between two nodes in a weighted graph using Dijkstra's algorithm",
		[]message.ToolArgument{
			{
				Name:        "edges",
				Description: "JSON array of edges. Example: '[{\"from\":\"A\",\"to\":\"B\",\"weight\":2}, {\"from\":\"B\",\"to\":\"C\",\"weight\":1}]'. Weight defaults to 1 when omitted.",
				Required:    true,
				Type:        "string",
			},
			{
				Name:        "start",
				Description: "Name of the start node",
				Required:    true,
				Type:        "string",
			},
			{
				Name:        "end",
				Description: "Name of the destination node",
				Required:    true,
				Type:        "string",
			},
			{
				Name:        "directed",
				Description: "Whether edges are directed. Default: true",
				Required:    false,
				Type:        "boolean",
			},
		},
		m.handleShortestPath)

	m.RegisterTool("solve_topological_sort", "Order nodes of a directed acyclic graph so every edge goes from earlier to later (dependency ordering)",
		[]message.ToolArgument{
			{
				Name:        "edges",
				Description: "JSON array of dependency edges where 'from' must come before 'to'. Example: '[{\"from\":\"build\",\"to\":\"test\"}, {\"from\":\"test\",\"to\":\"deploy\"}]'",
				Required:    true,
				Type:        "string",
			},
		},
		m.handleTopologicalSort)
}

type graphEdge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight *float64 `json:"weight,omitempty"`
}

// nodeIndex assigns stable int64 ids to node names for gonum graphs.
type nodeIndex struct {
	ids   map[string]int64
	names map[int64]string
}

func newNodeIndex() *nodeIndex {
	return &nodeIndex{ids: make(map[string]int64), names: make(map[int64]string)}
}

func (n *nodeIndex) id(name string) int64 {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := int64(len(n.ids))
	n.ids[name] = id
	n.names[id] = name
	return id
}

func (n *nodeIndex) name(id int64) string {
	return n.names[id]
}

func parseGraphEdges(edgesJSON string) ([]graphEdge, error) {
	var edges []graphEdge
	if err := json.Unmarshal([]byte(edgesJSON), &edges); err != nil {
		return nil, fmt.Errorf("failed to parse edges JSON: %v", err)
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("edges array is empty")
	}
	for i, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("edge %d is missing 'from' or 'to'", i)
		}
	}
	return edges, nil
}

func (m *SolverToolManager) handleShortestPath(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	edgesJSON, ok := args.String("edges")
	if !ok {
		return message.NewToolResultError("edges parameter is required and must be a string"), nil
	}
	start, ok := args.String("start")
	if !ok {
		return message.NewToolResultError("start parameter is required and must be a string"), nil
	}
	end, ok := args.String("end")
	if !ok {
		return message.NewToolResultError("end parameter is required and must be a string"), nil
	}
	directed := args.Bool("directed", true)

	edges, err := parseGraphEdges(edgesJSON)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("Failed to solve shortest path: %v", err)), nil
	}

	idx := newNodeIndex()
	var g graph.WeightedEdgeAdder
	var wg graph.Graph
	if directed {
		dg := simple.NewWeightedDirectedGraph(0, math.Inf(1))
		g, wg = dg, dg
	} else {
		ug := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
		g, wg = ug, ug
	}

	for _, e := range edges {
		weight := 1.0
		if e.Weight != nil {
			weight = *e.Weight
		}
		if weight < 0 {
			return message.NewToolResultError(fmt.Sprintf("Failed to solve shortest path: negative weight on edge %s -> %s", e.From, e.To)), nil
		}
		from, to := idx.id(e.From), idx.id(e.To)
		if from == to {
			continue
		}
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: weight})
	}

	startID, ok := idx.ids[start]
	if !ok {
		return message.NewToolResultError(fmt.Sprintf("Failed to solve shortest path: start node %q does not appear in edges", start)), nil
	}
	endID, ok := idx.ids[end]
	if !ok {
		return message.NewToolResultError(fmt.Sprintf("Failed to solve shortest path: end node %q does not appear in edges", end)), nil
	}

	shortest := path.DijkstraFrom(simple.Node(startID), wg)
	nodes, weight := shortest.To(endID)

	result := strings.Builder{}
	result.WriteString("Shortest Path Result:\n\n")
	result.WriteString(fmt.Sprintf("Start: %s\nEnd: %s\nDirected: %v\n\n", start, end, directed))

	if len(nodes) == 0 || math.IsInf(weight, 1) {
		result.WriteString("❌ NO PATH FOUND\n")
		result.WriteString(fmt.Sprintf("There is no path from %s to %s.\n", start, end))
		return message.NewToolResultText(result.String()), nil
	}

	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = idx.name(n.ID())
	}
	result.WriteString("✅ PATH FOUND:\n")
	result.WriteString(fmt.Sprintf("- Path: %s\n", strings.Join(names, " -> ")))
	result.WriteString(fmt.Sprintf("- Total weight: %g\n", weight))

	return message.NewToolResultText(result.String()), nil
}

func (m *SolverToolManager) handleTopologicalSort(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	edgesJSON, ok := args.String("edges")
	if !ok {
		return message.NewToolResultError("edges parameter is required and must be a string"), nil
	}

	edges, err := parseGraphEdges(edgesJSON)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("Failed to solve topological sort: %v", err)), nil
	}

	idx := newNodeIndex()
	g := simple.NewDirectedGraph()
	for _, e := range edges {
		from, to := idx.id(e.From), idx.id(e.To)
		if from == to {
			return message.NewToolResultError(fmt.Sprintf("Failed to solve topological sort: self-dependency on %q", e.From)), nil
		}
		g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	result := strings.Builder{}
	result.WriteString("Topological Sort Result:\n\n")

	sorted, err := topo.Sort(g)
	if err != nil {
		// topo.Sort reports the strongly connected components that form cycles
		unorderable, ok := err.(topo.Unorderable)
		if !ok {
			return message.NewToolResultError(fmt.Sprintf("Failed to solve topological sort: %v", err)), nil
		}
		result.WriteString("❌ CYCLE DETECTED\n")
		result.WriteString("The graph contains dependency cycles:\n")
		for _, cycle := range unorderable {
			names := make([]string, len(cycle))
			for i, n := range cycle {
				names[i] = idx.name(n.ID())
			}
			sort.Strings(names)
			result.WriteString(fmt.Sprintf("- {%s}\n", strings.Join(names, ", ")))
		}
		return message.NewToolResultText(result.String()), nil
	}

	names := make([]string, 0, len(sorted))
	for _, n := range sorted {
		if n == nil {
			continue
		}
		names = append(names, idx.name(n.ID()))
	}
	result.WriteString("✅ ORDER FOUND:\n")
	result.WriteString(fmt.Sprintf("- Order: %s\n", strings.Join(names, " -> ")))

	return message.NewToolResultText(result.String()), nil
}
