package scanner

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/liquidmods/modlink/pkg/classify"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/filesystem"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/reconcile"
	"github.com/liquidmods/modlink/pkg/types"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Options configures a Scanner.
type Options struct {
	ModulesDir string
	Layout     classify.Layout
	// Ignore holds doublestar patterns matched against module folder names.
	Ignore []string
	// RepairCandidates enables restoring links that were deleted from the
	// module side, using the conventional markup names of each folder.
	RepairCandidates bool
	DryRun           bool
	// Concurrency bounds how many module folders run at once. Zero means
	// GOMAXPROCS.
	Concurrency int
}

// Scanner reconciles every module folder under a modules root.
type Scanner struct {
	fs         types.FS
	opts       Options
	reconciler *reconcile.Reconciler
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a Scanner. A nil fs means the OS filesystem.
func New(fs types.FS, opts Options) *Scanner {
	if fs == nil {
		fs = filesystem.NewOS()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		fs:         fs,
		opts:       opts,
		reconciler: reconcile.New(fs, reconcile.WithDryRun(opts.DryRun)),
		logger:     logging.GetLogger("scanner"),
		now:        time.Now,
	}
}

// Scan runs one pass. A missing modules root is not an error. The returned
// error joins every per-file and per-module failure; the report is always
// returned, complete with the successful outcomes.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	report := &Report{
		ID:         uuid.NewString(),
		ModulesDir: s.opts.ModulesDir,
		ThemeRoot:  s.opts.Layout.ThemeRoot,
		DryRun:     s.opts.DryRun,
		Started:    s.now(),
	}
	logger := s.logger.With().Str("scan_id", report.ID).Logger()
	done := logging.LogOperationStart(logger, "scan")
	defer done()

	modules, err := s.Modules()
	if err != nil {
		report.Finished = s.now()
		return report, err
	}
	if modules == nil {
		report.RootMissing = true
		report.Finished = s.now()
		logger.Debug().Str("modules_dir", s.opts.ModulesDir).Msg("Modules root does not exist, nothing to do")
		return report, nil
	}

	report.Modules = make([]ModuleResult, len(modules))
	p := pool.New().
		WithMaxGoroutines(s.opts.Concurrency).
		WithErrors().
		WithContext(ctx)
	for i, name := range modules {
		i, name := i, name
		p.Go(func(ctx context.Context) error {
			report.Modules[i] = s.scanModule(ctx, logger, name)
			return report.Modules[i].Err
		})
	}
	scanErr := p.Wait()

	report.Finished = s.now()
	report.tally()

	event := logger.Info()
	if scanErr != nil {
		event = logger.Error().Err(scanErr)
	}
	event.
		Int("modules", report.Counts.Modules).
		Int("files", report.Counts.Files).
		Int("linked", report.Counts.Linked).
		Int("repaired", report.Counts.Repaired).
		Int("pruned", report.Counts.Pruned).
		Int("conflicts", report.Counts.Conflicts).
		Int("errors", report.Counts.Errors).
		Dur("duration", report.Duration()).
		Msg("Scan finished")

	return report, scanErr
}

// Modules returns the sorted module folder names. A missing modules root
// yields nil and no error.
func (s *Scanner) Modules() ([]string, error) {
	root := s.opts.ModulesDir
	info, err := s.fs.Stat(root)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrModulesRead, "cannot access modules root").
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrModulesRead, "modules root is not a directory").
			WithDetail("path", root)
	}

	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrModulesRead, "cannot read modules root").
			WithDetail("path", root)
	}

	modules := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			s.logger.Trace().Str("name", name).Msg("Skipping hidden entry")
			continue
		}
		if s.ignored(name) {
			s.logger.Trace().Str("name", name).Msg("Skipping ignored module")
			continue
		}
		if !s.isDir(filepath.Join(root, name), entry) {
			continue
		}
		modules = append(modules, name)
	}
	sort.Strings(modules)

	s.logger.Debug().Int("count", len(modules)).Msg("Found module folders")
	return modules, nil
}

func (s *Scanner) ignored(name string) bool {
	for _, pattern := range s.opts.Ignore {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// isDir accepts directories and symlinks to directories.
func (s *Scanner) isDir(path string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := s.fs.Stat(path)
	return err == nil && info.IsDir()
}

// scanModule reconciles the files of one module folder in listing order.
func (s *Scanner) scanModule(ctx context.Context, logger zerolog.Logger, name string) ModuleResult {
	dir := filepath.Join(s.opts.ModulesDir, name)
	result := ModuleResult{Name: name, Path: dir, Files: []FileResult{}}
	logger = logger.With().Str("module", name).Logger()

	files, err := s.markupFiles(dir)
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		logger.Error().Err(err).Msg("Cannot read module folder")
		return result
	}

	claimed := make(map[string]bool, len(files))
	var errs []error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		dest := s.opts.Layout.Classify(file)
		claimed[dest.Target] = true
		fr := s.reconcileFile(dir, file, dest)
		if fr.Err != nil {
			errs = append(errs, fr.Err)
			logger.Error().Err(fr.Err).Str("file", file).Msg("Reconcile failed")
		}
		result.Files = append(result.Files, fr)
	}

	if s.opts.RepairCandidates && ctx.Err() == nil {
		for _, fr := range s.repairs(dir, name, files, claimed) {
			if fr.Err != nil {
				errs = append(errs, fr.Err)
				logger.Error().Err(fr.Err).Str("file", fr.File).Msg("Repair failed")
			}
			result.Files = append(result.Files, fr)
		}
	}

	if len(errs) > 0 {
		result.Err = stderrors.Join(errs...)
		result.Error = result.Err.Error()
	}
	return result
}

// markupFiles lists the markup entries of a module folder that are regular
// files or symlinks, in listing order.
func (s *Scanner) markupFiles(dir string) ([]string, error) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrModulesRead, "cannot read module folder %s", dir).
			WithDetail("path", dir)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !classify.IsMarkup(name) {
			continue
		}
		mode := entry.Type()
		if mode.IsRegular() || mode&fs.ModeSymlink != 0 {
			files = append(files, name)
		}
	}
	return files, nil
}

// repairs finds conventional markup names missing from the folder whose
// theme file exists and is not claimed by a listed file. A candidate whose
// target name is already owned by a listed file is skipped, so a theme file
// that merely shares the module's name is never adopted.
func (s *Scanner) repairs(dir, module string, listed []string, claimed map[string]bool) []FileResult {
	present := make(map[string]bool, len(listed))
	owned := make(map[string]bool, len(listed))
	for _, f := range listed {
		present[f] = true
		owned[s.opts.Layout.Classify(f).Name] = true
	}

	var out []FileResult
	for _, candidate := range classify.Candidates(module) {
		if present[candidate] {
			continue
		}
		dest := s.opts.Layout.Classify(candidate)
		if claimed[dest.Target] || owned[dest.Name] {
			continue
		}
		claimed[dest.Target] = true

		state, err := s.reconciler.Inspect(filepath.Join(dir, candidate), dest.Target)
		if err == nil && state != reconcile.StateOrphaned {
			continue
		}
		fr := s.reconcileFile(dir, candidate, dest)
		fr.Repair = true
		out = append(out, fr)
	}
	return out
}

func (s *Scanner) reconcileFile(dir, file string, dest classify.Destination) FileResult {
	modulePath := filepath.Join(dir, file)
	outcome, err := s.reconciler.Reconcile(modulePath, dest.Target)
	fr := FileResult{File: file, Destination: dest, Outcome: outcome}
	if err != nil {
		fr.Err = errors.Wrapf(err, errors.ErrReconcile, "failed to reconcile %s", modulePath).
			WithDetail("module_path", modulePath).
			WithDetail("theme_path", dest.Target)
		fr.Error = fr.Err.Error()
	}
	return fr
}
