package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

func TestSolverToolManager_Registration(t *testing.T) {
	manager := NewSolverToolManager()
	tools := manager.GetTools()

	expectedToolNames := []string{"solve_csp", "solve_shortest_path", "solve_topological_sort"}
	if len(tools) != len(expectedToolNames) {
		t.Errorf("Expected %d tools, got %d", len(expectedToolNames), len(tools))
	}
	for _, toolName := range expectedToolNames {
		if _, exists := tools[message.ToolName(toolName)]; !exists {
			t.Errorf("Expected %s tool to exist", toolName)
		}
	}

	tool, exists := tools["solve_csp"]
	if !exists {
		t.Fatal("Expected solve_csp tool to exist")
	}
	if tool.Description() == "" {
		t.Error("Expected tool to have a description")
	}

	args := tool.Arguments()
	if len(args) != 4 {
		t.Errorf("Expected 4 arguments, got %d", len(args))
	}
	required := map[string]bool{}
	for _, arg := range args {
		required[arg.Name] = arg.Required
	}
	for _, name := range []string{"variables", "constraints"} {
		if req, ok := required[name]; !ok || !req {
			t.Errorf("Expected %s argument to be required", name)
		}
	}
	for _, name := range []string{"use_arc_consistency", "timeout_seconds"} {
		if req, ok := required[name]; !ok || req {
			t.Errorf("Expected %s argument to be optional", name)
		}
	}
}

func TestSolverToolManager_SolveCSP(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	args := message.ToolArgumentValues{
		"variables":           `{"X":[1,2], "Y":[1,2]}`,
		"constraints":         `["X != Y"]`,
		"use_arc_consistency": true,
		"timeout_seconds":     5.0,
	}

	result, err := manager.CallTool(ctx, "solve_csp", args)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("Expected no error in result, got: %s", result.Error)
	}
	if !strings.Contains(result.Text, "✅ SOLUTION FOUND") {
		t.Errorf("Expected solution to be found, got: %s", result.Text)
	}
	if !strings.Contains(result.Text, "X = ") || !strings.Contains(result.Text, "Y = ") {
		t.Errorf("Expected both variables assigned, got: %s", result.Text)
	}
}

func TestSolverToolManager_UnsatisfiableCSP(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	// Arc consistency disabled to exercise the backtracking path
	args := message.ToolArgumentValues{
		"variables":           `{"X":[1], "Y":[1]}`,
		"constraints":         `["X = Y", "X != Y"]`,
		"use_arc_consistency": false,
		"timeout_seconds":     5.0,
	}

	result, err := manager.CallTool(ctx, "solve_csp", args)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("Expected no error in result, got: %s", result.Error)
	}
	if !strings.Contains(result.Text, "❌ NO SOLUTION FOUND") {
		t.Errorf("Expected no solution for unsatisfiable CSP, got: %s", result.Text)
	}
}

func TestSolverToolManager_AllUniqueConstraint(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	args := message.ToolArgumentValues{
		"variables":           `{"X":[1,2,3], "Y":[1,2,3], "Z":[1,2,3]}`,
		"constraints":         `["AllUnique([X,Y,Z])"]`,
		"use_arc_consistency": false,
		"timeout_seconds":     5.0,
	}

	result, err := manager.CallTool(ctx, "solve_csp", args)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("Expected no error in result, got: %s", result.Error)
	}
	if !strings.Contains(result.Text, "✅ SOLUTION FOUND") {
		t.Errorf("Expected solution to be found for AllUnique, got: %s", result.Text)
	}
	for _, name := range []string{"X = ", "Y = ", "Z = "} {
		if !strings.Contains(result.Text, name) {
			t.Errorf("Expected %q in solution, got: %s", name, result.Text)
		}
	}
}

func TestSolverToolManager_UnaryConstraints(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	args := message.ToolArgumentValues{
		"variables":           `{"X":[1,2,3], "Y":[1,2,3]}`,
		"constraints":         `["X = 2", "Y != 2"]`,
		"use_arc_consistency": true,
		"timeout_seconds":     5.0,
	}

	result, err := manager.CallTool(ctx, "solve_csp", args)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("Expected no error in result, got: %s", result.Error)
	}
	if !strings.Contains(result.Text, "X = 2") {
		t.Error("Expected X = 2 in solution")
	}
	if strings.Contains(result.Text, "Y = 2") {
		t.Error("Y should not be 2 due to constraint Y != 2")
	}
}

func TestSolverToolManager_ArithmeticConstraint(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	args := message.ToolArgumentValues{
		"variables":           `{"X":[1,2,3,4], "Y":[1,2,3,4]}`,
		"constraints":         `["2*X + Y = 10", "X < Y"]`,
		"use_arc_consistency": false,
		"timeout_seconds":     5.0,
	}

	result, err := manager.CallTool(ctx, "solve_csp", args)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("Expected no error in result, got: %s", result.Error)
	}
	// Only X=3, Y=4 satisfies both
	if !strings.Contains(result.Text, "X = 3") || !strings.Contains(result.Text, "Y = 4") {
		t.Errorf("Expected X = 3 and Y = 4, got: %s", result.Text)
	}
}

func TestSolverToolManager_InvalidInput(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	t.Run("InvalidJSON", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"variables":   `{"X":[1,2,3], "Y":invalid}`,
			"constraints": `["X != Y"]`,
		}
		result, err := manager.CallTool(ctx, "solve_csp", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected error for invalid JSON, got successful result")
		}
		if !strings.Contains(result.Error, "Failed to solve CSP") {
			t.Errorf("Expected specific error message, got: %s", result.Error)
		}
	})

	t.Run("MissingConstraints", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"variables": `{"X":[1,2,3]}`,
		}
		result, err := manager.CallTool(ctx, "solve_csp", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected error in result for missing constraints argument")
		}
	})

	t.Run("UnknownTool", func(t *testing.T) {
		result, err := manager.CallTool(ctx, "nonexistent", message.ToolArgumentValues{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected error in result for non-existent tool")
		}
	})
}

func TestSolverToolManager_ShortestPath(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	t.Run("DirectedPath", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"edges": `[{"from":"A","to":"B","weight":1}, {"from":"B","to":"C","weight":2}, {"from":"A","to":"C","weight":10}]`,
			"start": "A",
			"end":   "C",
		}
		result, err := manager.CallTool(ctx, "solve_shortest_path", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error != "" {
			t.Fatalf("Expected no error in result, got: %s", result.Error)
		}
		if !strings.Contains(result.Text, "A -> B -> C") {
			t.Errorf("Expected path A -> B -> C, got: %s", result.Text)
		}
		if !strings.Contains(result.Text, "Total weight: 3") {
			t.Errorf("Expected total weight 3, got: %s", result.Text)
		}
	})

	t.Run("NoPath", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"edges": `[{"from":"A","to":"B"}, {"from":"C","to":"D"}]`,
			"start": "A",
			"end":   "D",
		}
		result, err := manager.CallTool(ctx, "solve_shortest_path", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(result.Text, "❌ NO PATH FOUND") {
			t.Errorf("Expected no path, got: %s", result.Text)
		}
	})

	t.Run("UndirectedReverse", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"edges":    `[{"from":"A","to":"B","weight":4}]`,
			"start":    "B",
			"end":      "A",
			"directed": false,
		}
		result, err := manager.CallTool(ctx, "solve_shortest_path", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(result.Text, "B -> A") {
			t.Errorf("Expected reverse traversal on undirected graph, got: %s", result.Text)
		}
	})

	t.Run("UnknownNode", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"edges": `[{"from":"A","to":"B"}]`,
			"start": "A",
			"end":   "Z",
		}
		result, err := manager.CallTool(ctx, "solve_shortest_path", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected error for unknown end node")
		}
	})
}

func TestSolverToolManager_TopologicalSort(t *testing.T) {
	manager := NewSolverToolManager()
	ctx := context.Background()

	t.Run("LinearDependencies", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"edges": `[{"from":"build","to":"test"}, {"from":"test","to":"deploy"}]`,
		}
		result, err := manager.CallTool(ctx, "solve_topological_sort", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error != "" {
			t.Fatalf("Expected no error in result, got: %s", result.Error)
		}
		if !strings.Contains(result.Text, "build -> test -> deploy") {
			t.Errorf("Expected build -> test -> deploy order, got: %s", result.Text)
		}
	})

	t.Run("CycleDetected", func(t *testing.T) {
		args := message.ToolArgumentValues{
			"edges": `[{"from":"a","to":"b"}, {"from":"b","to":"a"}]`,
		}
		result, err := manager.CallTool(ctx, "solve_topological_sort", args)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(result.Text, "❌ CYCLE DETECTED") {
			t.Errorf("Expected cycle report, got: %s", result.Text)
		}
		if !strings.Contains(result.Text, "a") || !strings.Contains(result.Text, "b") {
			t.Errorf("Expected cycle members listed, got: %s", result.Text)
		}
	})
}
