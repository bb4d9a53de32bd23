// pkg/scanner/scanner_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: MemoryFS, OS filesystem
// PURPOSE: Verify module enumeration, per-file reconciliation, repair
// discovery and failure isolation

package scanner_test

import (
	"context"
	stderrors "errors"
	"syscall"
	"testing"

	"github.com/liquidmods/modlink/pkg/classify"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/reconcile"
	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/liquidmods/modlink/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanner(env *testutil.TestEnvironment, mutate ...func(*scanner.Options)) *scanner.Scanner {
	opts := scanner.Options{
		ModulesDir:       env.ModulesDir,
		Layout:           classify.DefaultLayout(env.ThemeRoot),
		Ignore:           []string{"node_modules"},
		RepairCandidates: true,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return scanner.New(env.FS, opts)
}

func findFile(t *testing.T, report *scanner.Report, module, file string) scanner.FileResult {
	t.Helper()
	for _, m := range report.Modules {
		if m.Name != module {
			continue
		}
		for _, f := range m.Files {
			if f.File == file {
				return f
			}
		}
	}
	t.Fatalf("no result for %s/%s", module, file)
	return scanner.FileResult{}
}

func seedTheme(env *testutil.TestEnvironment) {
	env.AddModuleFile("hero", "hero.section.liquid", "hero")
	env.AddModuleFile("hero", "hero.js", "export default {}")
	env.AddModuleFile("card", "card.liquid", "card")
	env.AddModuleFile("product", "product.template.liquid", "product")
	env.AddModuleFile(".cache", "junk.liquid", "junk")
	env.AddModuleFile("node_modules", "dep.liquid", "dep")
}

func TestScan_MissingRootIsNoop(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	s := scanner.New(env.FS, scanner.Options{
		ModulesDir: env.ThemePath("does-not-exist"),
		Layout:     classify.DefaultLayout(env.ThemeRoot),
	})

	report, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, report.RootMissing)
	assert.Empty(t, report.Modules)
	assert.NotEmpty(t, report.ID)
}

func TestScan_RootIsFile(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	path := env.AddThemeFile("", "modules.txt", "not a dir")
	s := scanner.New(env.FS, scanner.Options{ModulesDir: path, Layout: classify.DefaultLayout(env.ThemeRoot)})

	_, err := s.Scan(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrModulesRead))
}

func TestScan_LinksAndIsIdempotent(t *testing.T) {
	for _, envType := range []testutil.EnvType{testutil.EnvMemoryOnly, testutil.EnvIsolated} {
		env := testutil.NewTestEnvironment(t, envType)
		seedTheme(env)
		s := newScanner(env)

		modules, err := s.Modules()
		require.NoError(t, err)
		assert.Equal(t, []string{"card", "hero", "product"}, modules)

		report, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, report.Counts.Modules)
		assert.Equal(t, 3, report.Counts.Linked)
		assert.Equal(t, 0, report.Counts.Errors)

		testutil.AssertSymlink(t, env.FS, env.ModulePath("hero", "hero.section.liquid"), env.ThemePath("sections", "hero.liquid"))
		testutil.AssertSymlink(t, env.FS, env.ModulePath("card", "card.liquid"), env.ThemePath("snippets", "card.liquid"))
		testutil.AssertSymlink(t, env.FS, env.ModulePath("product", "product.template.liquid"), env.ThemePath("sections", "product.liquid"))
		testutil.AssertRegularFile(t, env.FS, env.ModulePath("hero", "hero.js"))
		testutil.AssertRegularFile(t, env.FS, env.ModulePath(".cache", "junk.liquid"))
		testutil.AssertRegularFile(t, env.FS, env.ModulePath("node_modules", "dep.liquid"))

		again, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, again.Counts.Changed())
		assert.Equal(t, 3, again.Counts.Unchanged)
		assert.NotEqual(t, report.ID, again.ID)
	}
}

func TestScan_ProcessesEveryMarkupFile(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.AddModuleFile("multi", "multi.section.liquid", "s")
	env.AddModuleFile("multi", "multi-item.liquid", "a")
	env.AddModuleFile("multi", "multi-badge.liquid", "b")

	report, err := newScanner(env).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Counts.Linked)

	files := report.Modules[0].Files
	require.Len(t, files, 3)
	// listing order
	assert.Equal(t, "multi-badge.liquid", files[0].File)
	assert.Equal(t, "multi-item.liquid", files[1].File)
	assert.Equal(t, "multi.section.liquid", files[2].File)
}

func TestScan_RepairsDeletedModuleLink(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	seedTheme(env)
	s := newScanner(env)

	_, err := s.Scan(context.Background())
	require.NoError(t, err)

	link := env.ModulePath("hero", "hero.section.liquid")
	require.NoError(t, env.FS.Remove(link))

	report, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Repaired)

	fr := findFile(t, report, "hero", "hero.section.liquid")
	assert.True(t, fr.Repair)
	assert.Equal(t, reconcile.ActionRepaired, fr.Outcome.Action)
	testutil.AssertSymlink(t, env.FS, link, env.ThemePath("sections", "hero.liquid"))
	testutil.AssertRegularFile(t, env.FS, env.ThemePath("sections", "hero.liquid"), "hero")

	// the template candidate maps to the same target and is not tried twice
	for _, f := range report.Modules[1].Files {
		assert.NotEqual(t, "hero.template.liquid", f.File)
	}
}

func TestScan_RepairSkipsThemeFilesTheModuleDoesNotOwn(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.AddModuleFile("header", "header.section.liquid", "module header")
	env.AddThemeFile("snippets", "header.liquid", "theme header")

	report, err := newScanner(env).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Linked)
	assert.Equal(t, 0, report.Counts.Repaired)

	require.Len(t, report.Modules, 1)
	require.Len(t, report.Modules[0].Files, 1)
	assert.Equal(t, "header.section.liquid", report.Modules[0].Files[0].File)

	testutil.AssertNotExists(t, env.FS, env.ModulePath("header", "header.liquid"))
	testutil.AssertRegularFile(t, env.FS, env.ThemePath("snippets", "header.liquid"), "theme header")
	testutil.AssertSymlink(t, env.FS, env.ModulePath("header", "header.section.liquid"), env.ThemePath("sections", "header.liquid"))
}

func TestScan_RepairDisabled(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.AddThemeFile("snippets", "footer.liquid", "footer")
	require.NoError(t, env.FS.MkdirAll(env.ModulePath("footer"), 0755))

	report, err := newScanner(env, func(o *scanner.Options) { o.RepairCandidates = false }).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Counts.Files)
	testutil.AssertNotExists(t, env.FS, env.ModulePath("footer", "footer.liquid"))

	report, err = newScanner(env).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Repaired)
	testutil.AssertSymlink(t, env.FS, env.ModulePath("footer", "footer.liquid"), env.ThemePath("snippets", "footer.liquid"))
}

func TestScan_PrunesAndReportsConflicts(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	gone := env.AddThemeFile("snippets", "gone.liquid", "gone")
	env.AddModuleLink("gone", "gone.liquid", gone)
	require.NoError(t, env.FS.Remove(gone))

	env.AddModuleFile("banner", "banner.liquid", "module copy")
	env.AddThemeFile("snippets", "banner.liquid", "theme copy")

	report, err := newScanner(env).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Pruned)
	assert.Equal(t, 1, report.Counts.Conflicts)

	conflicts := report.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, env.ModulePath("banner", "banner.liquid"), conflicts[0].Outcome.ModulePath)
	assert.Equal(t, env.ThemePath("snippets", "banner.liquid"), conflicts[0].Outcome.ThemePath)
	testutil.AssertNotExists(t, env.FS, env.ModulePath("gone", "gone.liquid"))
}

func TestScan_IsolatesFailures(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	memfs := env.FS.(*testutil.MemoryFS)
	seedTheme(env)
	env.AddModuleFile("broken", "broken.liquid", "broken")
	env.AddModuleFile("locked", "locked.liquid", "locked")

	memfs.FailOn(testutil.OpSymlink, env.ModulePath("broken", "broken.liquid"), syscall.EPERM)
	memfs.FailOn(testutil.OpReadDir, env.ModulePath("locked"), syscall.EACCES)

	report, err := newScanner(env).Scan(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrReconcile))
	assert.True(t, errors.IsErrorCode(err, errors.ErrSymlinkCreate))
	assert.True(t, errors.IsErrorCode(err, errors.ErrModulesRead))

	assert.Equal(t, 3, report.Counts.Linked)
	assert.Equal(t, 2, report.Counts.Errors)

	broken := findFile(t, report, "broken", "broken.liquid")
	assert.NotEmpty(t, broken.Error)

	// the next scan heals the broken pair once the fault is gone
	memfs.ClearFailures()
	report, err = newScanner(env).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Repaired)
	assert.Equal(t, 1, report.Counts.Linked)
	testutil.AssertSymlink(t, env.FS, env.ModulePath("broken", "broken.liquid"), env.ThemePath("snippets", "broken.liquid"))
}

func TestScan_DryRunChangesNothing(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	seedTheme(env)

	report, err := newScanner(env, func(o *scanner.Options) { o.DryRun = true }).Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Counts.Linked)

	testutil.AssertRegularFile(t, env.FS, env.ModulePath("hero", "hero.section.liquid"), "hero")
	testutil.AssertNotExists(t, env.FS, env.ThemePath("sections", "hero.liquid"))
}

func TestScan_TemplateDestination(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.AddModuleFile("product", "product.template.liquid", "product")

	layout := classify.DefaultLayout(env.ThemeRoot)
	layout.TemplateDest = "templates"
	_, err := newScanner(env, func(o *scanner.Options) { o.Layout = layout }).Scan(context.Background())
	require.NoError(t, err)

	testutil.AssertSymlink(t, env.FS, env.ModulePath("product", "product.template.liquid"), env.ThemePath("templates", "product.liquid"))
}

func TestScan_CancelledContext(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	seedTheme(env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScanner(env).Scan(ctx)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	testutil.AssertRegularFile(t, env.FS, env.ModulePath("card", "card.liquid"), "card")
}
