package scanner

import (
	"time"

	"github.com/liquidmods/modlink/pkg/classify"
	"github.com/liquidmods/modlink/pkg/reconcile"
)

// FileResult is the outcome for one markup file.
type FileResult struct {
	// File is the filename inside the module folder.
	File        string               `json:"file" yaml:"file"`
	Destination classify.Destination `json:"destination" yaml:"destination"`
	Outcome     reconcile.Outcome    `json:"outcome" yaml:"outcome"`
	// Repair is set when the file was found by convention rather than listing.
	Repair bool   `json:"repair,omitempty" yaml:"repair,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// ModuleResult groups the files of one module folder.
type ModuleResult struct {
	Name  string       `json:"name" yaml:"name"`
	Path  string       `json:"path" yaml:"path"`
	Files []FileResult `json:"files" yaml:"files"`
	Error string       `json:"error,omitempty" yaml:"error,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// Counts summarizes a report.
type Counts struct {
	Modules   int `json:"modules" yaml:"modules"`
	Files     int `json:"files" yaml:"files"`
	Linked    int `json:"linked" yaml:"linked"`
	Repaired  int `json:"repaired" yaml:"repaired"`
	Pruned    int `json:"pruned" yaml:"pruned"`
	Conflicts int `json:"conflicts" yaml:"conflicts"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Errors    int `json:"errors" yaml:"errors"`
}

// Changed is the number of filesystem mutations (or planned ones in dry run).
func (c Counts) Changed() int {
	return c.Linked + c.Repaired + c.Pruned
}

// Report is the result of one scan.
type Report struct {
	ID         string    `json:"id" yaml:"id"`
	ModulesDir string    `json:"modules_dir" yaml:"modules_dir"`
	ThemeRoot  string    `json:"theme_root" yaml:"theme_root"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`
	Started    time.Time `json:"started" yaml:"started"`
	Finished   time.Time `json:"finished" yaml:"finished"`
	// RootMissing is set when the modules root does not exist.
	RootMissing bool           `json:"root_missing,omitempty" yaml:"root_missing,omitempty"`
	Modules     []ModuleResult `json:"modules" yaml:"modules"`
	Counts      Counts         `json:"counts" yaml:"counts"`
}

// Duration is how long the scan took.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Conflicts lists every file left in conflict.
func (r *Report) Conflicts() []FileResult {
	var out []FileResult
	for _, m := range r.Modules {
		for _, f := range m.Files {
			if f.Outcome.Action == reconcile.ActionConflict {
				out = append(out, f)
			}
		}
	}
	return out
}

func (r *Report) tally() {
	c := Counts{Modules: len(r.Modules)}
	for _, m := range r.Modules {
		if m.Err != nil && len(m.Files) == 0 {
			c.Errors++
		}
		for _, f := range m.Files {
			c.Files++
			if f.Err != nil {
				c.Errors++
				continue
			}
			switch f.Outcome.Action {
			case reconcile.ActionLinked:
				c.Linked++
			case reconcile.ActionRepaired:
				c.Repaired++
			case reconcile.ActionPruned:
				c.Pruned++
			case reconcile.ActionConflict:
				c.Conflicts++
			default:
				c.Unchanged++
			}
		}
	}
	r.Counts = c
}
