package style

import (
	_ "embed"

	"github.com/charmbracelet/lipgloss"
	"github.com/liquidmods/modlink/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var defaultStyles []byte

// ColorDef is an adaptive color in styles.yaml.
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef is one named style in styles.yaml.
type StyleDef struct {
	Bold        bool   `yaml:"bold,omitempty"`
	Italic      bool   `yaml:"italic,omitempty"`
	Underline   bool   `yaml:"underline,omitempty"`
	Foreground  string `yaml:"foreground,omitempty"`
	Background  string `yaml:"background,omitempty"`
	Width       int    `yaml:"width,omitempty"`
	PaddingLeft int    `yaml:"paddingLeft,omitempty"`
}

// Sheet is a parsed styles.yaml.
type Sheet struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

// Registry maps semantic names to lipgloss styles.
type Registry map[string]lipgloss.Style

// ParseRegistry builds a Registry from YAML. Styles naming an unknown color
// are an error.
func ParseRegistry(data []byte) (Registry, error) {
	var sheet Sheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "parse styles")
	}

	colors := make(map[string]lipgloss.AdaptiveColor, len(sheet.Colors))
	for name, def := range sheet.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}

	reg := make(Registry, len(sheet.Styles))
	for name, def := range sheet.Styles {
		s, err := buildStyle(def, colors)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "style %q", name)
		}
		reg[name] = s
	}
	return reg, nil
}

func buildStyle(def StyleDef, colors map[string]lipgloss.AdaptiveColor) (lipgloss.Style, error) {
	s := lipgloss.NewStyle().
		Bold(def.Bold).
		Italic(def.Italic).
		Underline(def.Underline)

	if def.Foreground != "" {
		c, ok := colors[def.Foreground]
		if !ok {
			return s, errors.Newf(errors.ErrInvalidInput, "unknown color %q", def.Foreground)
		}
		s = s.Foreground(c)
	}
	if def.Background != "" {
		c, ok := colors[def.Background]
		if !ok {
			return s, errors.Newf(errors.ErrInvalidInput, "unknown color %q", def.Background)
		}
		s = s.Background(c)
	}
	if def.Width > 0 {
		s = s.Width(def.Width)
	}
	if def.PaddingLeft > 0 {
		s = s.PaddingLeft(def.PaddingLeft)
	}
	return s, nil
}

// DefaultRegistry returns the built-in styles.
func DefaultRegistry() Registry {
	reg, err := ParseRegistry(defaultStyles)
	if err != nil {
		panic(err)
	}
	return reg
}

// Get returns the named style, or an empty one.
func (r Registry) Get(name string) lipgloss.Style {
	if s, ok := r[name]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
