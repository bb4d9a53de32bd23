package config

import (
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/pelletier/go-toml/v2"
)

// ToTOML renders the effective configuration in the same shape as the
// project file, so the output can be saved as modlink.toml.
func (c *Config) ToTOML() ([]byte, error) {
	out, err := toml.Marshal(c.toMap())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render configuration")
	}
	return out, nil
}

func (c *Config) toMap() map[string]interface{} {
	return map[string]interface{}{
		"modules_dir": c.ModulesDir,
		"theme_root":  c.ThemeRoot,
		"theme": map[string]interface{}{
			"sections_dir":  c.Theme.SectionsDir,
			"snippets_dir":  c.Theme.SnippetsDir,
			"templates_dir": c.Theme.TemplatesDir,
		},
		"link": map[string]interface{}{
			"template_dest":     c.Link.TemplateDest,
			"repair_candidates": c.Link.RepairCandidates,
		},
		"scan": map[string]interface{}{
			"ignore": nonNil(c.Scan.Ignore),
		},
		"resolve": map[string]interface{}{
			"extensions": nonNil(c.Resolve.Extensions),
			"aliases":    nonNil(c.Resolve.Aliases),
		},
		"watch": map[string]interface{}{
			"window":         c.Watch.Window.String(),
			"theme_patterns": nonNil(c.Watch.ThemePatterns),
			"ignore":         nonNil(c.Watch.Ignore),
		},
		"log": map[string]interface{}{
			"max_size_mb":  c.Log.MaxSizeMB,
			"max_backups":  c.Log.MaxBackups,
			"max_age_days": c.Log.MaxAgeDays,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
