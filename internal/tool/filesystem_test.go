package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpt/go-kaizen-cli/internal/infra"
	"github.com/fpt/go-kaizen-cli/internal/repository"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

func TestFileSystemToolManager_SecurityFeatures(t *testing.T) {
	tempDir := t.TempDir()
	allowedSubDir := filepath.Join(tempDir, "allowed")
	forbiddenDir := filepath.Join(tempDir, "forbidden")

	if err := os.MkdirAll(allowedSubDir, 0755); err != nil {
		t.Fatalf("Failed to create test directories: %v", err)
	}
	if err := os.MkdirAll(forbiddenDir, 0755); err != nil {
		t.Fatalf("Failed to create test directories: %v", err)
	}

	testFile := filepath.Join(allowedSubDir, "test.txt")
	secretFile := filepath.Join(allowedSubDir, "secret.env")
	forbiddenFile := filepath.Join(forbiddenDir, "forbidden.txt")

	if err := os.WriteFile(testFile, []byte("test content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.WriteFile(secretFile, []byte("API_KEY=secret123"), 0644); err != nil {
		t.Fatalf("Failed to create secret file: %v", err)
	}
	if err := os.WriteFile(forbiddenFile, []byte("forbidden content"), 0644); err != nil {
		t.Fatalf("Failed to create forbidden file: %v", err)
	}

	config := repository.FileSystemConfig{
		AllowedDirectories: []string{allowedSubDir},
		BlacklistedFiles:   []string{"*.env", "*secret*"},
	}

	manager := NewFileSystemToolManager(config, tempDir)
	ctx := context.Background()

	t.Run("AllowedDirectoryAccess", func(t *testing.T) {
		result, err := manager.handleReadFile(ctx, map[string]any{
			"path": testFile,
		})
		if err != nil {
			t.Errorf("Expected success reading allowed file, got error: %v", err)
		}
		if result.Error != "" {
			t.Errorf("Expected success, got error: %s", result.Error)
		}
		if !strings.Contains(result.Text, "test content") {
			t.Errorf("Expected file content, got: %s", result.Text)
		}
	})

	t.Run("ForbiddenDirectoryAccess", func(t *testing.T) {
		result, err := manager.handleReadFile(ctx, map[string]any{
			"path": forbiddenFile,
		})
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected access denied error for forbidden directory")
		}
		if !strings.Contains(result.Error, "not within allowed directories") {
			t.Errorf("Expected directory access error, got: %s", result.Error)
		}
	})

	t.Run("BlacklistedFileAccess", func(t *testing.T) {
		result, err := manager.handleReadFile(ctx, map[string]any{
			"path": secretFile,
		})
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected access denied error for blacklisted file")
		}
		if !strings.Contains(result.Error, "blacklisted") {
			t.Errorf("Expected blacklist error, got: %s", result.Error)
		}
	})

	t.Run("ReadWriteSemantics", func(t *testing.T) {
		writeFile := filepath.Join(allowedSubDir, "write_test.txt")

		// Writing without reading first must fail
		result, err := manager.handleWriteFile(ctx, map[string]any{
			"path":    writeFile,
			"content": "new content",
		})
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected read-write semantics violation")
		}
		if !strings.Contains(result.Error, "was not read before write") {
			t.Errorf("Expected read-write semantics error, got: %s", result.Error)
		}

		// Reading the missing file records the intent
		_, err = manager.handleReadFile(ctx, map[string]any{
			"path": writeFile,
		})
		if err != nil {
			t.Errorf("Unexpected error reading for write semantics: %v", err)
		}

		result, err = manager.handleWriteFile(ctx, map[string]any{
			"path":    writeFile,
			"content": "new content",
		})
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if result.Error != "" {
			t.Errorf("Expected write success after read, got error: %s", result.Error)
		}
	})

	t.Run("TimestampValidation", func(t *testing.T) {
		timestampFile := filepath.Join(allowedSubDir, "timestamp_test.txt")

		if err := os.WriteFile(timestampFile, []byte("original"), 0644); err != nil {
			t.Fatalf("Failed to create timestamp test file: %v", err)
		}

		_, err := manager.handleReadFile(ctx, map[string]any{
			"path": timestampFile,
		})
		if err != nil {
			t.Fatalf("Failed to read file for timestamp test: %v", err)
		}

		// Simulate external modification
		time.Sleep(10 * time.Millisecond)
		if err := os.WriteFile(timestampFile, []byte("externally modified"), 0644); err != nil {
			t.Fatalf("Failed to modify file externally: %v", err)
		}

		result, err := manager.handleWriteFile(ctx, map[string]any{
			"path":    timestampFile,
			"content": "my content",
		})
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if result.Error == "" {
			t.Error("Expected timestamp validation failure")
		}
		if !strings.Contains(result.Error, "was modified after last read") {
			t.Errorf("Expected timestamp error, got: %s", result.Error)
		}
	})
}

func TestFileSystemToolManager_DefaultConfigBlocksAssistantState(t *testing.T) {
	tempDir := t.TempDir()

	for _, name := range []string{"session.json", "todos.json", "settings.json", ".env"} {
		path := filepath.Join(tempDir, name)
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	manager := NewFileSystemToolManager(infra.DefaultFileSystemConfig(tempDir), tempDir)
	ctx := context.Background()

	for _, name := range []string{"session.json", "todos.json", "settings.json", ".env"} {
		t.Run(name, func(t *testing.T) {
			result, err := manager.handleReadFile(ctx, map[string]any{
				"path": filepath.Join(tempDir, name),
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !strings.Contains(result.Error, "blacklisted") {
				t.Errorf("Expected blacklist error for %s, got: %s", name, result.Error)
			}
		})
	}

	// Ordinary project files stay readable under the same config.
	readable := filepath.Join(tempDir, "main.go")
	if err := os.WriteFile(readable, []byte("package main"), 0644); err != nil {
		t.Fatalf("Failed to create readable file: %v", err)
	}
	result, err := manager.handleReadFile(ctx, map[string]any{"path": readable})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Errorf("Expected ordinary file to be readable, got: %s", result.Error)
	}
}

func TestFileSystemToolManager_EditFile(t *testing.T) {
	tempDir := t.TempDir()
	config := repository.FileSystemConfig{
		AllowedDirectories: []string{tempDir},
	}
	manager := NewFileSystemToolManager(config, tempDir)
	ctx := context.Background()

	editFile := filepath.Join(tempDir, "edit_test.go")
	original := "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n"
	if err := os.WriteFile(editFile, []byte(original), 0644); err != nil {
		t.Fatalf("Failed to create edit test file: %v", err)
	}

	// Establish read timestamp before editing
	if _, err := manager.handleReadFile(ctx, map[string]any{"path": editFile}); err != nil {
		t.Fatalf("Failed to read file before edit: %v", err)
	}

	t.Run("SingleReplacement", func(t *testing.T) {
		result, err := manager.handleEditFile(ctx, map[string]any{
			"file_path":  editFile,
			"old_string": "println(\"hello\")",
			"new_string": "println(\"goodbye\")",
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error != "" {
			t.Fatalf("Expected edit success, got error: %s", result.Error)
		}
		if !strings.Contains(result.Text, "1 occurrence(s) replaced") {
			t.Errorf("Expected occurrence count in result, got: %s", result.Text)
		}
		// Unified diff of the applied change is part of the result
		if !strings.Contains(result.Text, "-\tprintln(\"hello\")") || !strings.Contains(result.Text, "+\tprintln(\"goodbye\")") {
			t.Errorf("Expected unified diff in result, got: %s", result.Text)
		}

		content, err := os.ReadFile(editFile)
		if err != nil {
			t.Fatalf("Failed to read edited file: %v", err)
		}
		if !strings.Contains(string(content), "goodbye") {
			t.Errorf("Edit not applied, content: %s", string(content))
		}
	})

	t.Run("OldStringNotFound", func(t *testing.T) {
		result, err := manager.handleEditFile(ctx, map[string]any{
			"file_path":  editFile,
			"old_string": "does not exist",
			"new_string": "anything",
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(result.Error, "not found") {
			t.Errorf("Expected not-found error, got: %s", result.Error)
		}
	})

	t.Run("AmbiguousWithoutReplaceAll", func(t *testing.T) {
		multiFile := filepath.Join(tempDir, "multi.txt")
		if err := os.WriteFile(multiFile, []byte("aaa bbb aaa"), 0644); err != nil {
			t.Fatalf("Failed to create multi test file: %v", err)
		}
		if _, err := manager.handleReadFile(ctx, map[string]any{"path": multiFile}); err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}

		result, err := manager.handleEditFile(ctx, map[string]any{
			"file_path":  multiFile,
			"old_string": "aaa",
			"new_string": "ccc",
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(result.Error, "replace_all") {
			t.Errorf("Expected ambiguity error mentioning replace_all, got: %s", result.Error)
		}

		result, err = manager.handleEditFile(ctx, map[string]any{
			"file_path":   multiFile,
			"old_string":  "aaa",
			"new_string":  "ccc",
			"replace_all": true,
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Error != "" {
			t.Fatalf("Expected replace_all success, got error: %s", result.Error)
		}
		content, _ := os.ReadFile(multiFile)
		if string(content) != "ccc bbb ccc" {
			t.Errorf("Expected all occurrences replaced, got: %s", string(content))
		}
	})

	t.Run("IdenticalStringsRejected", func(t *testing.T) {
		result, err := manager.handleEditFile(ctx, map[string]any{
			"file_path":  editFile,
			"old_string": "same",
			"new_string": "same",
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(result.Error, "identical") {
			t.Errorf("Expected identical-string rejection, got: %s", result.Error)
		}
	})
}

func TestFileSystemToolManager_ToolRegistration(t *testing.T) {
	tempDir := t.TempDir()

	config := repository.FileSystemConfig{
		AllowedDirectories: []string{"."},
		BlacklistedFiles:   []string{},
	}

	manager := NewFileSystemToolManager(config, tempDir)

	expectedTools := []string{
		"read_file",
		"write_file",
		"edit_file",
		"list_directory",
		"find_file",
	}

	toolsMap := manager.GetTools()
	if len(toolsMap) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(toolsMap))
	}

	for _, expectedName := range expectedTools {
		tool, exists := manager.GetTool(message.ToolName(expectedName))
		if !exists {
			t.Errorf("Expected tool %s not found", expectedName)
		}
		if tool.Name() != message.ToolName(expectedName) {
			t.Errorf("Tool name mismatch: expected %s, got %s", expectedName, tool.Name())
		}
	}
}

func TestFileSystemToolManager_ResolvePath(t *testing.T) {
	tempDir := t.TempDir()

	config := repository.FileSystemConfig{
		AllowedDirectories: []string{tempDir},
	}
	manager := NewFileSystemToolManager(config, tempDir)

	tests := []struct {
		name        string
		inputPath   string
		expectError bool
		checkSuffix string
	}{
		{
			name:        "RelativePath",
			inputPath:   "test.txt",
			expectError: false,
			checkSuffix: filepath.Join(tempDir, "test.txt"),
		},
		{
			name:        "AbsolutePath",
			inputPath:   filepath.Join(tempDir, "absolute.txt"),
			expectError: false,
			checkSuffix: filepath.Join(tempDir, "absolute.txt"),
		},
		{
			name:        "DotPath",
			inputPath:   ".",
			expectError: false,
			checkSuffix: tempDir,
		},
		{
			name:        "SubdirectoryPath",
			inputPath:   "subdir/file.txt",
			expectError: false,
			checkSuffix: filepath.Join(tempDir, "subdir", "file.txt"),
		},
		{
			name:        "AbsolutePathOutsideWorkingDir",
			inputPath:   "/etc/passwd",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := manager.resolvePath(tt.inputPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none for path %s", tt.inputPath)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for path %s: %v", tt.inputPath, err)
				return
			}

			if !strings.HasSuffix(resolved, tt.checkSuffix) {
				t.Errorf("Expected resolved path to end with %s, but got %s", tt.checkSuffix, resolved)
			}

			if !filepath.IsAbs(resolved) {
				t.Errorf("Expected absolute path but got relative path: %s", resolved)
			}
		})
	}
}
