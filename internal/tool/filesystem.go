package tool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/pkg/errors"

	"github.com/fpt/go-kaizen-cli/internal/repository"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

var errNotInAllowedDirectory = errors.New("file access denied: path is not within allowed directories")

// FileSystemToolManager provides secure file system operations with safety controls
type FileSystemToolManager struct {
	toolSet

	// Access control
	allowedDirectories []string
	blacklistedFiles   []string

	// Working directory context for resolving relative paths
	workingDir string

	// Read-write semantics tracking
	fileReadTimestamps map[string]time.Time
	mu                 sync.RWMutex
}

// NewFileSystemToolManager creates a new secure filesystem tool manager
func NewFileSystemToolManager(config repository.FileSystemConfig, workingDir string) *FileSystemToolManager {
	absWorkingDir, err := filepath.Abs(workingDir)
	if err != nil {
		absWorkingDir = workingDir
	}

	manager := &FileSystemToolManager{
		toolSet:            newToolSet(),
		allowedDirectories: ensureWorkingDirectoryInAllowedList(config.AllowedDirectories, absWorkingDir),
		blacklistedFiles:   config.BlacklistedFiles,
		workingDir:         absWorkingDir,
		fileReadTimestamps: make(map[string]time.Time),
	}
	manager.registerFileSystemTools()
	return manager
}

// ensureWorkingDirectoryInAllowedList returns a copy of the configured list
// with the working directory included.
func ensureWorkingDirectoryInAllowedList(configuredDirectories []string, absWorkingDir string) []string {
	allowedDirs := make([]string, len(configuredDirectories))
	copy(allowedDirs, configuredDirectories)

	for _, dir := range allowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if absDir == absWorkingDir {
			return allowedDirs
		}
	}
	return append(allowedDirs, absWorkingDir)
}

func (m *FileSystemToolManager) registerFileSystemTools() {
	m.RegisterTool("read_file", "Read file content with access control",
		[]message.ToolArgument{
			{Name: "path", Description: "Path to the file to read", Required: true, Type: "string"},
		},
		m.handleReadFile)

	m.RegisterTool("write_file", "Write file content with read-write semantics validation. IMPORTANT: You must provide both 'path' (file path) and 'content' (full file content) parameters.",
		[]message.ToolArgument{
			{Name: "path", Description: "Path to the file to write (required string parameter)", Required: true, Type: "string"},
			{Name: "content", Description: "Full content to write to the file (required string parameter)", Required: true, Type: "string"},
		},
		m.handleWriteFile)

	m.RegisterTool("edit_file", "Edit a file by precise string replacement. old_string must match the file exactly.",
		[]message.ToolArgument{
			{Name: "file_path", Description: "Path to the file to edit", Required: true, Type: "string"},
			{Name: "old_string", Description: "Exact multiline string to replace (must match exactly once unless replace_all=true)", Required: true, Type: "string"},
			{Name: "new_string", Description: "Replacement content (multiline supported)", Required: true, Type: "string"},
			{Name: "replace_all", Description: "Replace all occurrences of old_string (default: false)", Required: false, Type: "boolean"},
		},
		m.handleEditFile)

	m.RegisterTool("list_directory", "List directory contents with access control",
		[]message.ToolArgument{
			{Name: "path", Description: "Path to the directory to list (defaults to current directory)", Required: false, Type: "string"},
		},
		m.handleListDirectory)

	m.RegisterTool("find_file", "Find files by name pattern using find command",
		[]message.ToolArgument{
			{Name: "name_pattern", Description: "File name pattern to search for (supports wildcards like *.go, *test*, etc.)", Required: true, Type: "string"},
			{Name: "path", Description: "Directory path to search in (must be within allowed directories)", Required: false, Type: "string"},
			{Name: "type", Description: "File type filter: 'f' for files, 'd' for directories, or 'both' (default: 'f')", Required: false, Type: "string"},
		},
		m.handleFindFile)
}

// resolvePath resolves a path relative to the working directory. Absolute
// paths outside the working directory are rejected here; allowed-directory
// checks still apply afterwards.
func (m *FileSystemToolManager) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if strings.HasPrefix(path, m.workingDir+string(os.PathSeparator)) || path == m.workingDir {
			return filepath.Clean(path), nil
		}
		return "", errors.Errorf("absolute path %s is outside working directory %s", path, m.workingDir)
	}
	return filepath.Clean(filepath.Join(m.workingDir, path)), nil
}

// isPathAllowed checks if an absolute path is within allowed directories
func (m *FileSystemToolManager) isPathAllowed(absPath string) error {
	for _, allowedDir := range m.allowedDirectories {
		allowedAbs, err := filepath.Abs(allowedDir)
		if err != nil {
			continue
		}
		if strings.HasPrefix(absPath, allowedAbs+string(os.PathSeparator)) || absPath == allowedAbs {
			return nil
		}
	}
	return errNotInAllowedDirectory
}

// isFileBlacklisted checks the secret-leak blacklist by filename and path
func (m *FileSystemToolManager) isFileBlacklisted(absPath string) error {
	fileName := filepath.Base(absPath)
	for _, blacklisted := range m.blacklistedFiles {
		if matched, _ := filepath.Match(blacklisted, fileName); matched {
			return errors.Errorf("file access denied: %s matches blacklisted pattern %s", fileName, blacklisted)
		}
		if matched, _ := filepath.Match(blacklisted, absPath); matched {
			return errors.Errorf("file access denied: %s matches blacklisted pattern %s", absPath, blacklisted)
		}
		if fileName == blacklisted || absPath == blacklisted {
			return errors.Errorf("file access denied: %s is blacklisted", absPath)
		}
	}
	return nil
}

// validateReadWriteSemantics rejects writes to files not read first or
// modified since the last read.
func (m *FileSystemToolManager) validateReadWriteSemantics(path string) error {
	m.mu.RLock()
	lastReadTime, wasRead := m.fileReadTimestamps[path]
	m.mu.RUnlock()

	if !wasRead {
		return errors.Errorf("read-write semantics violation: file %s was not read before write attempt", path)
	}

	fileInfo, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to check file modification time")
	}
	if err == nil && fileInfo.ModTime().After(lastReadTime) {
		return errors.Errorf("read-write semantics violation: file %s was modified after last read", path)
	}
	return nil
}

func (m *FileSystemToolManager) recordFileRead(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileReadTimestamps[path] = time.Now()
}

func (m *FileSystemToolManager) handleReadFile(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	pathParam, ok := args.String("path")
	if !ok {
		return message.NewToolResultError("path parameter is required"), nil
	}

	path, resolveErr := m.resolvePath(pathParam)
	if resolveErr != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to resolve path: %v", resolveErr)), nil
	}
	if err := m.isPathAllowed(path); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}
	if err := m.isFileBlacklisted(path); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		// Recording the attempt lets a new file be created after trying to
		// read it first
		if os.IsNotExist(err) {
			m.recordFileRead(path)
			return message.NewToolResultError(fmt.Sprintf("file does not exist: %s", path)), nil
		}
		return message.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
	}

	m.recordFileRead(path)
	return message.NewToolResultText(string(content)), nil
}

func (m *FileSystemToolManager) handleWriteFile(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	pathParam, ok := args.String("path")
	if !ok {
		return message.NewToolResultError("path parameter is required and must be a string"), nil
	}
	content, ok := args.String("content")
	if !ok {
		return message.NewToolResultError("content parameter is required and must be a string"), nil
	}

	path, resolveErr := m.resolvePath(pathParam)
	if resolveErr != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to resolve path: %v", resolveErr)), nil
	}
	if err := m.isPathAllowed(path); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}
	if err := m.isFileBlacklisted(path); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}

	logger.DebugWithIcon("📝", "Write file", "path", path, "content_length", len(content))

	// New files qualify too: reading the missing file first records the
	// intent and unlocks creation
	if err := m.validateReadWriteSemantics(path); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to create directory: %v", err)), nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to write file: %v", err)), nil
	}

	// Allow sequential edits without re-reads
	m.recordFileRead(path)

	return message.NewToolResultText(fmt.Sprintf("Successfully wrote to %s", path)), nil
}

func (m *FileSystemToolManager) handleEditFile(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	filePath, ok := args.String("file_path")
	if !ok {
		return message.NewToolResultError("file_path parameter is required"), nil
	}
	oldString, ok := args.String("old_string")
	if !ok {
		return message.NewToolResultError("old_string parameter is required"), nil
	}
	newString, ok := args.String("new_string")
	if !ok {
		return message.NewToolResultError("new_string parameter is required"), nil
	}
	replaceAll := args.Bool("replace_all", false)

	if oldString == newString {
		return message.NewToolResultError("old_string and new_string cannot be identical"), nil
	}

	absPath, err := m.resolvePath(filePath)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to resolve path: %v", err)), nil
	}
	if err := m.isPathAllowed(absPath); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}
	if err := m.isFileBlacklisted(absPath); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}
	if err := m.validateReadWriteSemantics(absPath); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to read file %s: %v", absPath, err)), nil
	}
	fileContent := string(content)

	occurrences := strings.Count(fileContent, oldString)
	if occurrences == 0 {
		return message.NewToolResultError(fmt.Sprintf("old_string not found in file %s. Please ensure exact whitespace and formatting match.", absPath)), nil
	}
	if occurrences > 1 && !replaceAll {
		return message.NewToolResultError(fmt.Sprintf("old_string appears %d times in file %s (use replace_all=true to replace all occurrences)", occurrences, absPath)), nil
	}

	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(fileContent, oldString, newString)
	} else {
		newContent = strings.Replace(fileContent, oldString, newString, 1)
	}

	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to write file %s: %v", absPath, err)), nil
	}
	m.recordFileRead(absPath)

	return message.NewToolResultText(fmt.Sprintf("Successfully edited %s (%d occurrence(s) replaced)\n%s",
		absPath, occurrences, unifiedDiff(absPath, fileContent, newContent))), nil
}

// unifiedDiff renders the applied change so the model can verify its edit
func unifiedDiff(path, before, after string) string {
	edits := myers.ComputeEdits(span.URIFromPath(path), before, after)
	diff := fmt.Sprint(gotextdiff.ToUnified(path, path, before, edits))

	lines := strings.Split(diff, "\n")
	if len(lines) > 60 {
		diff = strings.Join(lines[:60], "\n") + fmt.Sprintf("\n... (%d more diff lines)", len(lines)-60)
	}
	return diff
}

func (m *FileSystemToolManager) handleListDirectory(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	pathParam, ok := args.String("path")
	if !ok || pathParam == "" {
		pathParam = "."
	}

	path, resolveErr := m.resolvePath(pathParam)
	if resolveErr != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to resolve path: %v", resolveErr)), nil
	}
	if err := m.isPathAllowed(path); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to read directory: %v", err)), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Contents of %s:\n", path))
	for _, entry := range entries {
		if entry.IsDir() {
			result.WriteString(fmt.Sprintf("  %s/ (directory)\n", entry.Name()))
		} else {
			result.WriteString(fmt.Sprintf("  %s (file)\n", entry.Name()))
		}
	}
	return message.NewToolResultText(result.String()), nil
}

func (m *FileSystemToolManager) handleFindFile(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	namePattern, ok := args.String("name_pattern")
	if !ok {
		return message.NewToolResultError("name_pattern parameter is required"), nil
	}
	pathParam, ok := args.String("path")
	if !ok || pathParam == "" {
		pathParam = "."
	}

	absPath, resolveErr := m.resolvePath(pathParam)
	if resolveErr != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to resolve path: %v", resolveErr)), nil
	}
	if err := m.isPathAllowed(absPath); err != nil {
		return message.NewToolResultError(err.Error()), nil
	}

	typeFilter := "f"
	if typeStr, ok := args.String("type"); ok && (typeStr == "f" || typeStr == "d" || typeStr == "both") {
		typeFilter = typeStr
	}

	argsList := []string{absPath}
	switch typeFilter {
	case "f":
		argsList = append(argsList, "-type", "f")
	case "d":
		argsList = append(argsList, "-type", "d")
	}
	argsList = append(argsList, "-name", namePattern)
	argsList = append(argsList, "-not", "-path", "*/.*", "-not", "-path", "*/node_modules/*", "-not", "-path", "*/vendor/*")

	cmd := exec.CommandContext(ctx, "find", argsList...)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("find command failed: %v\nOutput: %s", err, outputStr)), nil
	}
	if outputStr == "" {
		return message.NewToolResultText(fmt.Sprintf("No files found matching pattern '%s' in path '%s'", namePattern, absPath)), nil
	}

	lines := strings.Split(strings.TrimSpace(outputStr), "\n")
	if len(lines) > 100 {
		truncated := strings.Join(lines[:100], "\n")
		truncated += fmt.Sprintf("\n\n... (output truncated, showing first 100 matches out of %d total matches)", len(lines))
		return message.NewToolResultText(truncated), nil
	}
	return message.NewToolResultText(outputStr), nil
}
