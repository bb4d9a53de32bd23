package classify

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	SectionSuffix  = ".section.liquid"
	TemplateSuffix = ".template.liquid"
	MarkupExt      = ".liquid"
)

// Kind is the theme-side category of a markup fragment.
type Kind int

const (
	Snippet Kind = iota
	Section
	Template
)

func (k Kind) String() string {
	switch k {
	case Section:
		return "section"
	case Template:
		return "template"
	default:
		return "snippet"
	}
}

// MarshalText renders the kind by name in JSON and YAML reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Destination is the classification of one markup file.
type Destination struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Dir is the theme directory name relative to the theme root.
	Dir string `json:"dir" yaml:"dir"`
	// Name is the filename inside Dir.
	Name string `json:"name" yaml:"name"`
	// Target is the absolute theme path, Join(themeRoot, Dir, Name).
	Target string `json:"target" yaml:"target"`
}

// Layout names the theme directories a file can be classified into.
type Layout struct {
	ThemeRoot   string
	SectionsDir string
	SnippetsDir string
	// TemplateDest is where *.template.liquid files go.
	TemplateDest string
}

// DefaultLayout returns the conventional layout rooted at themeRoot.
func DefaultLayout(themeRoot string) Layout {
	return Layout{
		ThemeRoot:    themeRoot,
		SectionsDir:  "sections",
		SnippetsDir:  "snippets",
		TemplateDest: "sections",
	}
}

// Classify derives the destination of a markup file. Only the base name of
// filename is considered. It never fails.
func (l Layout) Classify(filename string) Destination {
	name := filepath.Base(filename)

	var d Destination
	switch {
	case hasStem(name, SectionSuffix):
		d = Destination{Kind: Section, Dir: l.SectionsDir, Name: strings.TrimSuffix(name, SectionSuffix) + MarkupExt}
	case hasStem(name, TemplateSuffix):
		d = Destination{Kind: Template, Dir: l.TemplateDest, Name: strings.TrimSuffix(name, TemplateSuffix) + MarkupExt}
	default:
		d = Destination{Kind: Snippet, Dir: l.SnippetsDir, Name: name}
	}
	d.Target = filepath.Join(l.ThemeRoot, d.Dir, d.Name)
	return d
}

// hasStem reports whether name ends in suffix with a non-empty base before it.
// A bare ".section.liquid" is treated as a snippet.
func hasStem(name, suffix string) bool {
	return len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

// IsMarkup tells whether a directory entry name is a markup fragment.
func IsMarkup(name string) bool {
	return strings.HasSuffix(name, MarkupExt) && len(name) > len(MarkupExt)
}

// Candidates returns the conventional markup filenames for a module folder,
// in the order they are tried during repair discovery.
func Candidates(module string) []string {
	return []string{
		module + SectionSuffix,
		module + TemplateSuffix,
		module + MarkupExt,
	}
}

// ThemeDirs lists the distinct theme directories of the layout, relative to
// the theme root.
func (l Layout) ThemeDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, d := range []string{l.SectionsDir, l.SnippetsDir, l.TemplateDest} {
		if d != "" && !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (d Destination) String() string {
	return fmt.Sprintf("%s %s", d.Kind, filepath.Join(d.Dir, d.Name))
}
