// Package infra supplies the concrete runtime configuration for the tool
// layer.
package infra

import (
	"path/filepath"

	"github.com/fpt/go-kaizen-cli/internal/repository"
)

// DefaultFileSystemConfig scopes the filesystem tools to the working directory
// and blocks credential material plus the assistant's own state files.
func DefaultFileSystemConfig(workingDir string) repository.FileSystemConfig {
	absWorkingDir, err := filepath.Abs(workingDir)
	if err != nil {
		absWorkingDir = workingDir
	}

	return repository.FileSystemConfig{
		// Everything the tools touch must live under the working directory;
		// whatever directory the user launched from becomes the boundary.
		AllowedDirectories: []string{
			absWorkingDir,
		},
		BlacklistedFiles: []string{
			// credentials and secret material
			".env",
			".env.*",
			"*.key",
			"*.pem",
			"*.crt",
			"*secret*",
			"*password*",
			"*token*",
			"*api_key*",
			".aws/credentials",
			".aws/config",
			".ssh/id_*",
			".ssh/known_hosts",
			"*.p12",
			"*.pfx",
			"secrets.json",
			"credentials.json",
			".netrc",
			".dockercfg",
			".docker/config.json",
			".npmrc",
			".yarnrc",
			".gitconfig",
			// the assistant's own state; the model edits these through the
			// session and todo tools, never as raw files
			"session.json",
			"todos.json",
			"settings.json",
			// databases, caches and noise
			"*.sqlite",
			"*.db",
			"node_modules/*",
			".git/*",
			"vendor/*",
			"*.log",
		},
	}
}
