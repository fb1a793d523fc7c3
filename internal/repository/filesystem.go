// Package repository defines the configuration contracts shared between the
// application wiring and the tool managers.
package repository

// FileSystemConfig bounds what the filesystem tools may touch. Paths outside
// AllowedDirectories are rejected outright; BlacklistedFiles are glob patterns
// checked against both the base name and the full path of every access.
type FileSystemConfig struct {
	AllowedDirectories []string `json:"allowed_directories"`
	BlacklistedFiles   []string `json:"blacklisted_files"`
}
