package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// maxTodoItems keeps the list short enough to stay useful as model context
const maxTodoItems = 5

// TodoItem represents a single todo item
type TodoItem struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`   // pending, in_progress, done
	Priority string `json:"priority"` // high, medium, low
	Created  string `json:"created"`
	Updated  string `json:"updated"`
}

// todoState is the persisted todo list
type todoState struct {
	Items   []TodoItem `json:"items"`
	Updated string     `json:"updated"`

	mu       sync.RWMutex
	filePath string
}

// TodoToolManager lets the model track multi-step work as a short todo list
type TodoToolManager struct {
	toolSet
	state *todoState
}

// NewTodoToolManager creates a todo tool manager persisting under the
// project's .kaizen directory
func NewTodoToolManager(workingDir string) *TodoToolManager {
	return NewTodoToolManagerWithPath(filepath.Join(workingDir, ".kaizen", "todos.json"))
}

// NewTodoToolManagerWithPath creates a todo tool manager with a specific file path
func NewTodoToolManagerWithPath(todoFilePath string) *TodoToolManager {
	manager := &TodoToolManager{
		toolSet: newToolSet(),
		state: &todoState{
			Items:    make([]TodoItem, 0),
			filePath: todoFilePath,
		},
	}
	_ = manager.state.loadFromFile()

	manager.RegisterTool("todo_write", "Write or update the todo list with tasks and their status. IMPORTANT: Keep todos to 5 items or fewer for focus and clarity. Only use for complex multi-step tasks.",
		[]message.ToolArgument{
			{
				Name:        "todos",
				Description: "Array of todo items with content, status, priority, and id",
				Required:    true,
				Type:        "array",
			},
		},
		manager.handleTodoWrite)

	return manager
}

// NewInMemoryTodoToolManager creates a todo tool manager without persistence
func NewInMemoryTodoToolManager() *TodoToolManager {
	return NewTodoToolManagerWithPath("")
}

func (m *TodoToolManager) handleTodoWrite(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	todosArg, ok := args["todos"]
	if !ok {
		return message.NewToolResultError("todos parameter is required"), nil
	}

	var todoItems []TodoItem

	switch v := todosArg.(type) {
	case string:
		// JSON-encoded array
		if err := json.Unmarshal([]byte(v), &todoItems); err != nil {
			return message.NewToolResultError(fmt.Sprintf("failed to parse todos JSON: %v", err)), nil
		}
	case []interface{}:
		now := time.Now().Format(time.RFC3339)
		for _, item := range v {
			todoMap, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			todoItem := TodoItem{Created: now, Updated: now}
			if id, ok := todoMap["id"].(string); ok {
				todoItem.ID = id
			}
			if content, ok := todoMap["content"].(string); ok {
				todoItem.Content = content
			}
			if status, ok := todoMap["status"].(string); ok {
				todoItem.Status = status
			}
			if priority, ok := todoMap["priority"].(string); ok {
				todoItem.Priority = priority
			}
			todoItems = append(todoItems, todoItem)
		}
	default:
		return message.NewToolResultError("todos parameter must be a JSON array or array of objects"), nil
	}

	if len(todoItems) > maxTodoItems {
		return message.NewToolResultError("Too many todo items. Please limit to 5 items or fewer for better focus and management."), nil
	}

	for _, item := range todoItems {
		if item.ID == "" || item.Content == "" {
			return message.NewToolResultError("all todo items must have id and content"), nil
		}
		if item.Status != "pending" && item.Status != "in_progress" && item.Status != "done" {
			return message.NewToolResultError(fmt.Sprintf("invalid status '%s', must be pending, in_progress, or done", item.Status)), nil
		}
		if item.Priority != "high" && item.Priority != "medium" && item.Priority != "low" {
			return message.NewToolResultError(fmt.Sprintf("invalid priority '%s', must be high, medium, or low", item.Priority)), nil
		}
	}

	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	m.state.Items = todoItems
	m.state.Updated = time.Now().Format(time.RFC3339)

	if err := m.state.saveToFile(); err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to save todos: %v", err)), nil
	}

	statusCounts := make(map[string]int)
	priorityCounts := make(map[string]int)
	for _, item := range todoItems {
		statusCounts[item.Status]++
		priorityCounts[item.Priority]++
	}

	summary := fmt.Sprintf("Successfully updated todo list with %d items:\n", len(todoItems))
	summary += fmt.Sprintf("- Status: %d pending, %d in_progress, %d done\n",
		statusCounts["pending"], statusCounts["in_progress"], statusCounts["done"])
	summary += fmt.Sprintf("- Priority: %d high, %d medium, %d low",
		priorityCounts["high"], priorityCounts["medium"], priorityCounts["low"])

	return message.NewToolResultText(summary), nil
}

// TodosForPrompt renders the current list for injection into model context
func (m *TodoToolManager) TodosForPrompt() string {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	if len(m.state.Items) == 0 {
		return ""
	}

	result := fmt.Sprintf("Current Todo List (%d items):\n\n", len(m.state.Items))

	statusGroups := map[string][]TodoItem{}
	for _, item := range m.state.Items {
		statusGroups[item.Status] = append(statusGroups[item.Status], item)
	}

	// in_progress first, then pending, then done
	for _, status := range []string{"in_progress", "pending", "done"} {
		items := statusGroups[status]
		if len(items) == 0 {
			continue
		}
		result += fmt.Sprintf("## %s (%d items):\n", status, len(items))
		for _, item := range items {
			result += fmt.Sprintf("- [%s] %s - %s (ID: %s)\n", item.Priority, item.Content, item.Status, item.ID)
		}
		result += "\n"
	}

	result += fmt.Sprintf("Last updated: %s", m.state.Updated)
	return result
}

func (ts *todoState) loadFromFile() error {
	if ts.filePath == "" {
		return fmt.Errorf("no file path specified")
	}

	data, err := os.ReadFile(ts.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, ts)
}

func (ts *todoState) saveToFile() error {
	if ts.filePath == "" {
		// In-memory mode, nothing to persist
		return nil
	}

	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(ts.filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(ts.filePath, data, 0644)
}
