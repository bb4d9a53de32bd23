package style

import (
	"io"
	"os"

	"github.com/liquidmods/modlink/pkg/classify"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/scanner"
)

// Resolution is one answered resolve query.
type Resolution struct {
	Specifier string `json:"specifier" yaml:"specifier"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Handled   bool   `json:"handled" yaml:"handled"`
}

// Classification is one classified filename.
type Classification struct {
	File        string               `json:"file" yaml:"file"`
	Destination classify.Destination `json:"destination" yaml:"destination"`
}

// Renderer writes command results in one format.
type Renderer interface {
	RenderReport(report *scanner.Report) error
	RenderResolutions(rs []Resolution) error
	RenderClassifications(cs []Classification) error
	RenderError(err error) error
	RenderMessage(msg string) error
}

// Options tune the human-readable renderers.
type Options struct {
	// ShowUnchanged lists files that needed no action.
	ShowUnchanged bool
	// Registry overrides DefaultRegistry.
	Registry Registry
}

// NewRenderer returns the renderer for format writing to w. FormatAuto
// inspects w when it is a file and falls back to terminal output otherwise.
func NewRenderer(format Format, w io.Writer, opts Options) (Renderer, error) {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}

	switch format {
	case FormatAuto:
		if f, ok := w.(*os.File); ok {
			return NewRenderer(DetectFormat(f), w, opts)
		}
		return NewRenderer(FormatTerminal, w, opts)
	case FormatTerminal:
		return newTextRenderer(w, opts, true), nil
	case FormatText:
		return newTextRenderer(w, opts, false), nil
	case FormatJSON:
		return &jsonRenderer{w: w}, nil
	case FormatYAML:
		return &yamlRenderer{w: w}, nil
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown format: %v", format)
	}
}
