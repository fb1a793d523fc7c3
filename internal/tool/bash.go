package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

const (
	defaultBashTimeout = 60 * time.Second
	maxBashTimeout     = 300 * time.Second
	maxBashOutputBytes = 30000
)

// blockedCommandPatterns are substrings that make a command too destructive to
// run regardless of what the model asks for
var blockedCommandPatterns = []string{
	"rm -rf /",
	"rm -rf ~",
	"mkfs",
	"dd if=",
	":(){",
	"shutdown",
	"reboot",
	"> /dev/sd",
}

// BashToolManager runs shell commands in the working directory with a timeout
type BashToolManager struct {
	toolSet

	workingDir string
}

// NewBashToolManager creates a bash tool manager rooted at workingDir
func NewBashToolManager(workingDir string) *BashToolManager {
	manager := &BashToolManager{
		toolSet:    newToolSet(),
		workingDir: workingDir,
	}
	manager.RegisterTool("bash", "Execute a shell command and return its combined output. Commands run in the project working directory.",
		[]message.ToolArgument{
			{Name: "command", Description: "Shell command to execute", Required: true, Type: "string"},
			{Name: "timeout_seconds", Description: "Timeout in seconds (default 60, max 300)", Required: false, Type: "number"},
		},
		manager.handleBash)
	return manager
}

func (m *BashToolManager) handleBash(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	command, ok := args.String("command")
	if !ok || strings.TrimSpace(command) == "" {
		return message.NewToolResultError("command parameter is required"), nil
	}

	for _, pattern := range blockedCommandPatterns {
		if strings.Contains(command, pattern) {
			return message.NewToolResultError(fmt.Sprintf("command blocked: contains forbidden pattern %q", pattern)), nil
		}
	}

	timeout := defaultBashTimeout
	if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
		if timeout > maxBashTimeout {
			timeout = maxBashTimeout
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.DebugWithIcon("🖥️", "Run command", "command", command, "timeout", timeout)

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	cmd.Dir = m.workingDir
	output, err := cmd.CombinedOutput()
	outputStr := truncateOutput(string(output))

	if cmdCtx.Err() == context.DeadlineExceeded {
		return message.NewToolResultError(fmt.Sprintf("command timed out after %s\nPartial output:\n%s", timeout, outputStr)), nil
	}
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("command failed: %v\nOutput:\n%s", err, outputStr)), nil
	}
	if outputStr == "" {
		return message.NewToolResultText("(no output)"), nil
	}
	return message.NewToolResultText(outputStr), nil
}

func truncateOutput(output string) string {
	if len(output) <= maxBashOutputBytes {
		return output
	}
	return output[:maxBashOutputBytes] + fmt.Sprintf("\n... (output truncated, %d bytes omitted)", len(output)-maxBashOutputBytes)
}
