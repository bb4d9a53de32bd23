// pkg/testutil/environment.go
// DEPENDENCIES: None (base test utilities)
// PURPOSE: Orchestrate test environments with a modules root and a theme root

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/liquidmods/modlink/pkg/filesystem"
	"github.com/liquidmods/modlink/pkg/types"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// TestEnvironment provides a project with a modules root and a theme root
type TestEnvironment struct {
	ProjectRoot string
	ModulesDir  string
	ThemeRoot   string

	FS   types.FS
	Type EnvType

	t *testing.T
}

// NewTestEnvironment creates a new test environment
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{t: t, Type: envType}

	switch envType {
	case EnvMemoryOnly:
		env.ProjectRoot = "/virtual/project"
		env.FS = NewMemoryFS()
	case EnvIsolated:
		root, err := filepath.EvalSymlinks(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to resolve temp dir: %v", err)
		}
		env.ProjectRoot = root
		env.FS = filesystem.NewOS()
	}

	env.ModulesDir = filepath.Join(env.ProjectRoot, "src", "modules")
	env.ThemeRoot = env.ProjectRoot

	for _, dir := range []string{env.ModulesDir, env.ThemePath("sections"), env.ThemePath("snippets")} {
		if err := env.FS.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	return env
}

// ModulePath joins elem onto the modules root
func (env *TestEnvironment) ModulePath(elem ...string) string {
	return filepath.Join(append([]string{env.ModulesDir}, elem...)...)
}

// ThemePath joins elem onto the theme root
func (env *TestEnvironment) ThemePath(elem ...string) string {
	return filepath.Join(append([]string{env.ThemeRoot}, elem...)...)
}

// AddModuleFile writes a file inside a module folder and returns its path
func (env *TestEnvironment) AddModuleFile(module, name, content string) string {
	env.t.Helper()
	return env.write(env.ModulePath(module, name), content)
}

// AddThemeFile writes a file under the theme root (e.g. "snippets", "card.liquid")
func (env *TestEnvironment) AddThemeFile(dir, name, content string) string {
	env.t.Helper()
	return env.write(env.ThemePath(dir, name), content)
}

// AddModuleLink creates a relative symlink at module/name pointing at target
func (env *TestEnvironment) AddModuleLink(module, name, target string) string {
	env.t.Helper()

	link := env.ModulePath(module, name)
	env.mkdir(filepath.Dir(link))
	rel, err := filepath.Rel(filepath.Dir(link), target)
	if err != nil {
		env.t.Fatalf("Failed to relativize %s: %v", target, err)
	}
	if err := env.FS.Symlink(rel, link); err != nil {
		env.t.Fatalf("Failed to create symlink %s: %v", link, err)
	}
	return link
}

// WithFileTree creates a complete file tree structure under base
func (env *TestEnvironment) WithFileTree(base string, tree FileTree) {
	env.t.Helper()
	createFileTree(env.t, env.FS, base, tree)
}

func (env *TestEnvironment) write(path, content string) string {
	env.t.Helper()
	env.mkdir(filepath.Dir(path))
	if err := env.FS.WriteFile(path, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

func (env *TestEnvironment) mkdir(dir string) {
	env.t.Helper()
	if err := env.FS.MkdirAll(dir, 0755); err != nil {
		env.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}
}

// FileTree represents a directory structure for testing. Values are either
// file contents (string) or nested FileTrees.
type FileTree map[string]interface{}

// createFileTree recursively creates a file tree
func createFileTree(t *testing.T, fs types.FS, basePath string, tree FileTree) {
	t.Helper()

	if err := fs.MkdirAll(basePath, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", basePath, err)
	}

	for name, content := range tree {
		fullPath := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			if err := fs.WriteFile(fullPath, []byte(v), 0644); err != nil {
				t.Fatalf("Failed to write file %s: %v", fullPath, err)
			}
		case FileTree:
			createFileTree(t, fs, fullPath, v)
		default:
			t.Fatalf("Invalid file tree content type for %s: %T", name, content)
		}
	}
}
