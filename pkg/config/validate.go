package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/liquidmods/modlink/pkg/errors"
)

// Template destinations accepted by link.template_dest.
const (
	TemplateDestSections  = "sections"
	TemplateDestTemplates = "templates"
)

// Validate checks the configuration and returns a CONFIG_INVALID error
// listing every problem found.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.ModulesDir == "" {
		add("modules_dir must not be empty")
	}
	if c.ThemeRoot == "" {
		add("theme_root must not be empty")
	}

	for key, dir := range map[string]string{
		"theme.sections_dir":  c.Theme.SectionsDir,
		"theme.snippets_dir":  c.Theme.SnippetsDir,
		"theme.templates_dir": c.Theme.TemplatesDir,
	} {
		switch {
		case dir == "":
			add("%s must not be empty", key)
		case filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), ".."):
			add("%s must be inside the theme root, got %q", key, dir)
		}
	}

	switch c.Link.TemplateDest {
	case TemplateDestSections, TemplateDestTemplates:
	default:
		add("link.template_dest must be %q or %q, got %q", TemplateDestSections, TemplateDestTemplates, c.Link.TemplateDest)
	}

	if c.Watch.Window <= 0 {
		add("watch.window must be positive, got %s", c.Watch.Window)
	}

	if len(c.Resolve.Extensions) == 0 {
		add("resolve.extensions must not be empty")
	}
	for _, ext := range c.Resolve.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			add("resolve.extensions entry %q must start with a dot", ext)
		}
	}
	for _, alias := range c.Resolve.Aliases {
		if alias == "" || strings.ContainsAny(alias, `/\`) {
			add("resolve.aliases entry %q must be a single non-empty segment", alias)
		}
	}

	for key, patterns := range map[string][]string{
		"scan.ignore":          c.Scan.Ignore,
		"watch.theme_patterns": c.Watch.ThemePatterns,
		"watch.ignore":         c.Watch.Ignore,
	} {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				add("%s pattern %q is invalid", key, p)
			}
		}
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		add("log settings must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	// map iteration above is unordered
	sort.Strings(problems)
	return errors.Newf(errors.ErrConfigValid, "invalid configuration: %s", strings.Join(problems, "; ")).
		WithDetail("problems", problems)
}
