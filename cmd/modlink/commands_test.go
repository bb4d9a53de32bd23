package modlink

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/liquidmods/modlink/pkg/config"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/liquidmods/modlink/pkg/style"
	"github.com/liquidmods/modlink/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProject returns an isolated project and keeps log files out of the
// user's state directory.
func newProject(t *testing.T) *testutil.TestEnvironment {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	xdg.Reload()
	return testutil.NewTestEnvironment(t, testutil.EnvIsolated)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{}, args...))
	err := root.Execute()
	return out.String(), err
}

func runReport(t *testing.T, args ...string) (*scanner.Report, error) {
	t.Helper()
	out, err := run(t, append(args, "--format", "json")...)
	var report scanner.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return &report, err
}

func TestLink_MovesAndLinks(t *testing.T) {
	env := newProject(t)
	env.AddModuleFile("hero", "hero.section.liquid", "<section>")
	env.AddModuleFile("hero", "hero-badge.liquid", "<span>")

	report, err := runReport(t, "link", "--root", env.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Counts.Linked)

	testutil.AssertSymlink(t, env.FS, env.ModulePath("hero", "hero.section.liquid"), env.ThemePath("sections", "hero.liquid"))
	testutil.AssertSymlink(t, env.FS, env.ModulePath("hero", "hero-badge.liquid"), env.ThemePath("snippets", "hero-badge.liquid"))
	testutil.AssertRegularFile(t, env.FS, env.ThemePath("sections", "hero.liquid"), "<section>")

	again, err := runReport(t, "link", "--root", env.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Counts.Changed())
	assert.Equal(t, 2, again.Counts.Unchanged)
}

func TestLink_DryRunChangesNothing(t *testing.T) {
	env := newProject(t)
	env.AddModuleFile("hero", "hero.section.liquid", "<section>")

	report, err := runReport(t, "link", "--dry-run", "--root", env.ProjectRoot)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Counts.Linked)

	testutil.AssertRegularFile(t, env.FS, env.ModulePath("hero", "hero.section.liquid"), "<section>")
	testutil.AssertNotExists(t, env.FS, env.ThemePath("sections", "hero.liquid"))
}

func TestLink_ConflictIsReportedNotFatal(t *testing.T) {
	env := newProject(t)
	env.AddModuleFile("card", "card.liquid", "module")
	env.AddThemeFile("snippets", "card.liquid", "theme")

	out, err := run(t, "link", "--root", env.ProjectRoot, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, env.ModulePath("card", "card.liquid")+" and "+env.ThemePath("snippets", "card.liquid"))

	testutil.AssertRegularFile(t, env.FS, env.ModulePath("card", "card.liquid"), "module")
	testutil.AssertRegularFile(t, env.FS, env.ThemePath("snippets", "card.liquid"), "theme")
}

func TestLink_RepairsDeletedLink(t *testing.T) {
	env := newProject(t)
	env.AddThemeFile("sections", "hero.liquid", "<section>")
	require.NoError(t, env.FS.MkdirAll(env.ModulePath("hero"), 0755))

	report, err := runReport(t, "link", "--root", env.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Counts.Repaired)
	testutil.AssertNotExists(t, env.FS, env.ModulePath("hero", "hero.section.liquid"))

	t.Setenv("MODLINK_LINK__REPAIR_CANDIDATES", "true")
	report, err = runReport(t, "link", "--root", env.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Repaired)
	testutil.AssertSymlink(t, env.FS, env.ModulePath("hero", "hero.section.liquid"), env.ThemePath("sections", "hero.liquid"))
}

func TestLink_MissingModulesRoot(t *testing.T) {
	env := newProject(t)

	report, err := runReport(t, "link", "--root", env.ProjectRoot, "--modules-dir", "does/not/exist")
	require.NoError(t, err)
	assert.True(t, report.RootMissing)
	assert.Empty(t, report.Modules)
}

func TestStatus_ShowsStates(t *testing.T) {
	env := newProject(t)
	env.AddModuleFile("hero", "hero.section.liquid", "<section>")

	out, err := run(t, "status", "--root", env.ProjectRoot, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "will link")
	testutil.AssertRegularFile(t, env.FS, env.ModulePath("hero", "hero.section.liquid"))
}

func TestResolve(t *testing.T) {
	env := newProject(t)
	env.AddModuleFile("hero", "hero.ts", "export {}")

	out, err := run(t, "resolve", "@modules/hero", "lodash", "--root", env.ProjectRoot, "--format", "json")
	require.NoError(t, err)

	var got []style.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []style.Resolution{
		{Specifier: "@modules/hero", Path: env.ModulePath("hero", "hero.ts"), Handled: true},
		{Specifier: "lodash"},
	}, got)
}

func TestResolve_Aliases(t *testing.T) {
	env := newProject(t)

	out, err := run(t, "resolve", "--aliases", "--root", env.ProjectRoot, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "@modules -> "+env.ModulesDir)
	assert.Contains(t, out, "~modules -> "+env.ModulesDir)
}

func TestResolve_RequiresArgs(t *testing.T) {
	env := newProject(t)
	_, err := run(t, "resolve", "--root", env.ProjectRoot)
	assert.EqualError(t, err, MsgNoSpecifiers)
}

func TestClassify_TemplateDestFromEnv(t *testing.T) {
	env := newProject(t)

	classify := func() string {
		out, err := run(t, "classify", "hero.template.liquid", "--root", env.ProjectRoot, "--format", "json")
		require.NoError(t, err)
		var got []style.Classification
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		return got[0].Destination.Dir
	}

	assert.Equal(t, "sections", classify())

	t.Setenv("MODLINK_LINK__TEMPLATE_DEST", "templates")
	assert.Equal(t, "templates", classify())
}

func TestConfig_PrintsEffectiveTOML(t *testing.T) {
	env := newProject(t)
	project := filepath.Join(env.ProjectRoot, "modlink.toml")
	require.NoError(t, os.WriteFile(project, []byte("[link]\ntemplate_dest = \"templates\"\n"), 0644))

	out, err := run(t, "config", "--root", env.ProjectRoot)
	require.NoError(t, err)
	assert.Contains(t, out, "# loaded from "+project)
	assert.Regexp(t, `template_dest = ['"]templates['"]`, out)
	assert.Contains(t, out, env.ModulesDir)
}

func TestConfig_Defaults(t *testing.T) {
	out, err := run(t, "config", "--defaults")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultsContent(), out)
}

func TestConfig_InvalidIsRejected(t *testing.T) {
	env := newProject(t)
	t.Setenv("MODLINK_LINK__TEMPLATE_DEST", "layouts")

	_, err := run(t, "link", "--root", env.ProjectRoot)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestUnknownFormat(t *testing.T) {
	env := newProject(t)
	_, err := run(t, "status", "--root", env.ProjectRoot, "--format", "xml")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "modlink version dev"))
}

func TestHelpTopics(t *testing.T) {
	out, err := run(t, "topics")
	require.NoError(t, err)
	for _, name := range []string{"conflicts", "configuration", "layout", "watch"} {
		assert.Contains(t, out, "  "+name+"\n")
	}
}

func TestCompletion(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "modlink")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestNoCommand(t *testing.T) {
	_, err := run(t)
	assert.Error(t, err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch_ReconcilesOnChange(t *testing.T) {
	env := newProject(t)
	env.AddModuleFile("hero", "hero.section.liquid", "<section>")
	require.NoError(t, env.FS.MkdirAll(env.ModulePath("card"), 0755))

	cfg, err := config.Default(env.ProjectRoot)
	require.NoError(t, err)

	var out syncBuffer
	r, err := style.NewRenderer(style.FormatText, &out, style.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, cfg, r) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching")
	}, 5*time.Second, 10*time.Millisecond)

	// The initial pass already linked hero.
	testutil.AssertSymlink(t, env.FS, env.ModulePath("hero", "hero.section.liquid"), env.ThemePath("sections", "hero.liquid"))

	require.NoError(t, os.WriteFile(env.ModulePath("card", "card.liquid"), []byte("<div>"), 0644))

	assert.Eventually(t, func() bool {
		info, err := os.Lstat(env.ModulePath("card", "card.liquid"))
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			return false
		}
		_, err = os.Stat(env.ThemePath("snippets", "card.liquid"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
