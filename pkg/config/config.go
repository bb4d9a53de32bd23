package config

import (
	"path/filepath"
	"time"

	"github.com/liquidmods/modlink/pkg/classify"
	"github.com/liquidmods/modlink/pkg/logging"
)

// Config is the effective modlink configuration. Directory fields are
// absolute after Load.
type Config struct {
	ModulesDir string  `koanf:"modules_dir"`
	ThemeRoot  string  `koanf:"theme_root"`
	Theme      Theme   `koanf:"theme"`
	Link       Link    `koanf:"link"`
	Scan       Scan    `koanf:"scan"`
	Resolve    Resolve `koanf:"resolve"`
	Watch      Watch   `koanf:"watch"`
	Log        Log     `koanf:"log"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
	// Source is the project config file that was loaded, if any.
	Source string `koanf:"-"`
}

// Theme names the theme directories, relative to the theme root.
type Theme struct {
	SectionsDir  string `koanf:"sections_dir"`
	SnippetsDir  string `koanf:"snippets_dir"`
	TemplatesDir string `koanf:"templates_dir"`
}

// Link controls reconciliation.
type Link struct {
	// TemplateDest is "sections" or "templates".
	TemplateDest     string `koanf:"template_dest"`
	RepairCandidates bool   `koanf:"repair_candidates"`
}

// Scan controls module folder enumeration.
type Scan struct {
	Ignore []string `koanf:"ignore"`
}

// Resolve controls folder-as-module import resolution.
type Resolve struct {
	Extensions []string `koanf:"extensions"`
	Aliases    []string `koanf:"aliases"`
}

// Watch controls watch mode.
type Watch struct {
	Window        time.Duration `koanf:"window"`
	ThemePatterns []string      `koanf:"theme_patterns"`
	Ignore        []string      `koanf:"ignore"`
}

// Log controls log file rotation.
type Log struct {
	MaxSizeMB  int `koanf:"max_size_mb"`
	MaxBackups int `koanf:"max_backups"`
	MaxAgeDays int `koanf:"max_age_days"`
}

// Layout returns the classifier layout for this configuration.
func (c *Config) Layout() classify.Layout {
	layout := classify.Layout{
		ThemeRoot:    c.ThemeRoot,
		SectionsDir:  c.Theme.SectionsDir,
		SnippetsDir:  c.Theme.SnippetsDir,
		TemplateDest: c.Theme.SectionsDir,
	}
	if c.Link.TemplateDest == TemplateDestTemplates {
		layout.TemplateDest = c.Theme.TemplatesDir
	}
	return layout
}

// LogOptions returns the log rotation settings.
func (c *Config) LogOptions() logging.FileOptions {
	return logging.FileOptions{
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// absolutize resolves the root directories against the project root.
func (c *Config) absolutize() {
	c.ModulesDir = absJoin(c.ProjectRoot, c.ModulesDir)
	c.ThemeRoot = absJoin(c.ProjectRoot, c.ThemeRoot)
}

func absJoin(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
