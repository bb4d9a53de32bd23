package style

import (
	"encoding/json"
	"io"

	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/scanner"
	"gopkg.in/yaml.v3"
)

// errorDoc is how errors appear in machine-readable output.
type errorDoc struct {
	Error   string                 `json:"error" yaml:"error"`
	Code    errors.ErrorCode       `json:"code" yaml:"code"`
	Details map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

func newErrorDoc(err error) errorDoc {
	return errorDoc{
		Error:   err.Error(),
		Code:    errors.GetErrorCode(err),
		Details: errors.GetErrorDetails(err),
	}
}

type messageDoc struct {
	Message string `json:"message" yaml:"message"`
}

type jsonRenderer struct {
	w io.Writer
}

func (r *jsonRenderer) encode(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *jsonRenderer) RenderReport(report *scanner.Report) error { return r.encode(report) }

func (r *jsonRenderer) RenderResolutions(rs []Resolution) error {
	if rs == nil {
		rs = []Resolution{}
	}
	return r.encode(rs)
}

func (r *jsonRenderer) RenderClassifications(cs []Classification) error {
	if cs == nil {
		cs = []Classification{}
	}
	return r.encode(cs)
}

func (r *jsonRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	return r.encode(newErrorDoc(err))
}

func (r *jsonRenderer) RenderMessage(msg string) error { return r.encode(messageDoc{Message: msg}) }

type yamlRenderer struct {
	w io.Writer
}

func (r *yamlRenderer) encode(v interface{}) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (r *yamlRenderer) RenderReport(report *scanner.Report) error { return r.encode(report) }

func (r *yamlRenderer) RenderResolutions(rs []Resolution) error { return r.encode(rs) }

func (r *yamlRenderer) RenderClassifications(cs []Classification) error { return r.encode(cs) }

func (r *yamlRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	return r.encode(newErrorDoc(err))
}

func (r *yamlRenderer) RenderMessage(msg string) error { return r.encode(messageDoc{Message: msg}) }
