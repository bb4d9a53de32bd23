package reconcile

import (
	"path/filepath"

	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/filesystem"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/types"
	"github.com/rs/zerolog"
)

// Action is the step Reconcile took (or, in dry-run mode, would take).
type Action int

const (
	ActionNone Action = iota
	// ActionRepaired: a missing module-side link was recreated.
	ActionRepaired
	// ActionPruned: a dangling module-side link was removed.
	ActionPruned
	// ActionConflict: both sides hold a real file; nothing was touched.
	ActionConflict
	// ActionLinked: the module file was moved into the theme and linked back.
	ActionLinked
)

var actionNames = map[Action]string{
	ActionNone:     "none",
	ActionRepaired: "repaired",
	ActionPruned:   "pruned",
	ActionConflict: "conflict",
	ActionLinked:   "linked",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the action by name in JSON and YAML reports.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Changed reports whether the action mutates the filesystem.
func (a Action) Changed() bool {
	return a == ActionRepaired || a == ActionPruned || a == ActionLinked
}

// Outcome describes what happened to one pair.
type Outcome struct {
	ModulePath string `json:"module_path" yaml:"module_path"`
	ThemePath  string `json:"theme_path" yaml:"theme_path"`
	// State is the state observed before acting.
	State  State  `json:"state" yaml:"state"`
	Action Action `json:"action" yaml:"action"`
	// LinkDest is the raw destination when the module path was a symlink.
	LinkDest string `json:"link_dest,omitempty" yaml:"link_dest,omitempty"`
	// Elsewhere is set when a module link resolves somewhere other than the
	// theme path. Such links are left alone.
	Elsewhere bool `json:"elsewhere,omitempty" yaml:"elsewhere,omitempty"`
	DryRun    bool `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// Reconciler applies the reconcile steps through a types.FS.
type Reconciler struct {
	fs     types.FS
	dryRun bool
	logger zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDryRun makes Reconcile report the action it would take without
// mutating anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// New creates a Reconciler. A nil fs means the OS filesystem.
func New(fs types.FS, opts ...Option) *Reconciler {
	if fs == nil {
		fs = filesystem.NewOS()
	}
	r := &Reconciler{
		fs:     fs,
		logger: logging.GetLogger("reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DryRun reports whether the reconciler only plans.
func (r *Reconciler) DryRun() bool {
	return r.dryRun
}

// Reconcile takes the single step that moves the pair toward convergence.
// The first matching case wins and steps on one pair run in order. A
// conflict is reported through the outcome and a warning, not an error.
func (r *Reconciler) Reconcile(modulePath, themePath string) (Outcome, error) {
	out := Outcome{ModulePath: modulePath, ThemePath: themePath, DryRun: r.dryRun}

	st, dest, err := r.inspect(modulePath, themePath)
	if err != nil {
		return out, err
	}
	out.State = st
	out.LinkDest = dest

	logger := r.logger.With().
		Str("module_path", modulePath).
		Str("theme_path", themePath).
		Str("state", st.String()).
		Logger()

	switch st {
	case StateOrphaned:
		out.Action = ActionRepaired
		if !r.dryRun {
			if err := r.link(modulePath, themePath); err != nil {
				return out, err
			}
		}
		logger.Info().Bool("dry_run", r.dryRun).Msg("Restored module link")

	case StateDangling:
		out.Action = ActionPruned
		if !r.dryRun {
			if err := r.fs.Remove(modulePath); err != nil {
				return out, errors.Wrapf(err, errors.ErrSymlinkRemove, "cannot remove dangling link %s", modulePath).
					WithDetail("module_path", modulePath)
			}
		}
		logger.Info().Str("link_dest", dest).Bool("dry_run", r.dryRun).Msg("Removed dangling module link")

	case StateConflict:
		out.Action = ActionConflict
		logger.Warn().Msgf("Conflicting liquid files found at %s and %s", modulePath, themePath)

	case StatePending:
		out.Action = ActionLinked
		if !r.dryRun {
			if err := r.moveAndLink(modulePath, themePath); err != nil {
				return out, err
			}
		}
		logger.Info().Bool("dry_run", r.dryRun).Msg("Moved module file into theme and linked it")

	case StateLinked:
		if resolveLink(modulePath, dest) != filepath.Clean(themePath) {
			out.Elsewhere = true
			logger.Debug().Str("link_dest", dest).Msg("Module link points elsewhere, leaving it")
		}

	case StateAbsent:
		logger.Trace().Msg("Nothing on either side")
	}

	return out, nil
}

// moveAndLink is the first-time setup sequence. A failure at any step stops
// the sequence; the partial state is picked up by the next pass.
func (r *Reconciler) moveAndLink(modulePath, themePath string) error {
	themeDir := filepath.Dir(themePath)
	if err := r.fs.MkdirAll(themeDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create theme directory %s", themeDir).
			WithDetail("theme_path", themePath)
	}

	if err := r.fs.Rename(modulePath, themePath); err != nil {
		return errors.Wrapf(err, errors.ErrRename, "cannot move %s to %s", modulePath, themePath).
			WithDetail("module_path", modulePath).
			WithDetail("theme_path", themePath)
	}

	return r.link(modulePath, themePath)
}

// link creates a symlink at modulePath pointing at themePath, relative to
// the module folder.
func (r *Reconciler) link(modulePath, themePath string) error {
	rel, err := RelativeTarget(modulePath, themePath)
	if err != nil {
		return err
	}
	if err := r.fs.Symlink(rel, modulePath); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot link %s to %s", modulePath, rel).
			WithDetail("module_path", modulePath).
			WithDetail("theme_path", themePath)
	}
	return nil
}

// RelativeTarget computes the link text stored at modulePath.
func RelativeTarget(modulePath, themePath string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(modulePath), themePath)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot relativize %s against %s", themePath, modulePath)
	}
	return rel, nil
}
