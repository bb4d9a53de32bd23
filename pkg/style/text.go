package style

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/liquidmods/modlink/pkg/reconcile"
	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/muesli/termenv"
	"github.com/pterm/pterm"
)

// Action indicators. The plain renderer uses the same glyphs uncolored.
const (
	indicatorChanged   = "✓"
	indicatorConflict  = "!"
	indicatorError     = "✗"
	indicatorUnchanged = "·"
)

// pastVerbs and futureVerbs label actions in normal and dry-run reports.
var (
	pastVerbs = map[reconcile.Action]string{
		reconcile.ActionLinked:   "linked",
		reconcile.ActionRepaired: "repaired",
		reconcile.ActionPruned:   "pruned",
		reconcile.ActionConflict: "conflict",
		reconcile.ActionNone:     "ok",
	}
	futureVerbs = map[reconcile.Action]string{
		reconcile.ActionLinked:   "will link",
		reconcile.ActionRepaired: "will repair",
		reconcile.ActionPruned:   "will prune",
		reconcile.ActionConflict: "conflict",
		reconcile.ActionNone:     "ok",
	}
	actionStyles = map[reconcile.Action]string{
		reconcile.ActionLinked:   "Linked",
		reconcile.ActionRepaired: "Repaired",
		reconcile.ActionPruned:   "Pruned",
		reconcile.ActionConflict: "Conflict",
		reconcile.ActionNone:     "Unchanged",
	}
)

// textRenderer draws reports for people. With color off it binds styles to
// an ASCII lipgloss renderer, which keeps widths but drops escape codes.
type textRenderer struct {
	w      io.Writer
	opts   Options
	lg     *lipgloss.Renderer
	colors bool
}

func newTextRenderer(w io.Writer, opts Options, colors bool) *textRenderer {
	lg := lipgloss.NewRenderer(w)
	if !colors {
		lg.SetColorProfile(termenv.Ascii)
	}
	return &textRenderer{w: w, opts: opts, lg: lg, colors: colors}
}

func (r *textRenderer) paint(name, s string) string {
	return r.opts.Registry.Get(name).Renderer(r.lg).Render(s)
}

func (r *textRenderer) RenderReport(report *scanner.Report) error {
	var b strings.Builder

	title := "modlink"
	if report.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&b, "%s %s\n", r.paint("Title", title), r.paint("Muted", shortID(report.ID)))

	if report.RootMissing {
		fmt.Fprintf(&b, "%s\n", r.paint("Muted", "No modules folder at "+report.ModulesDir))
		return r.write(b.String())
	}

	for _, m := range report.Modules {
		lines := r.moduleLines(report, m)
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", r.paint("Module", m.Name))
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", r.summary(report))
	return r.write(b.String())
}

func (r *textRenderer) moduleLines(report *scanner.Report, m scanner.ModuleResult) []string {
	var lines []string
	if m.Error != "" {
		lines = append(lines, fmt.Sprintf("%s %s %s", r.paint("Error", indicatorError), r.paint("ErrorLabel", "error"), m.Error))
	}

	verbs := pastVerbs
	if report.DryRun {
		verbs = futureVerbs
	}

	for _, f := range m.Files {
		switch {
		case f.Error != "":
			lines = append(lines, fmt.Sprintf("%s %s %s: %s",
				r.paint("Error", indicatorError), r.paint("ErrorLabel", "error"), f.File, f.Error))

		case f.Outcome.Action == reconcile.ActionConflict:
			lines = append(lines, fmt.Sprintf("%s %s %s and %s",
				r.paint("Warning", indicatorConflict), r.paint("Conflict", verbs[f.Outcome.Action]),
				r.paint("Path", f.Outcome.ModulePath), r.paint("Path", f.Outcome.ThemePath)))

		case f.Outcome.Action.Changed():
			lines = append(lines, fmt.Sprintf("%s %s %s → %s",
				r.paint("Success", indicatorChanged), r.paint(actionStyles[f.Outcome.Action], verbs[f.Outcome.Action]),
				f.File, r.paint("Path", rel(report.ThemeRoot, f.Outcome.ThemePath))))

		case r.opts.ShowUnchanged:
			lines = append(lines, fmt.Sprintf("%s %s %s %s",
				r.paint("Muted", indicatorUnchanged), r.paint("Unchanged", f.Outcome.State.String()),
				f.File, r.paint("Path", rel(report.ThemeRoot, f.Outcome.ThemePath))))
		}
	}
	return lines
}

func (r *textRenderer) summary(report *scanner.Report) string {
	c := report.Counts
	parts := []string{
		fmt.Sprintf("%d linked", c.Linked),
		fmt.Sprintf("%d repaired", c.Repaired),
		fmt.Sprintf("%d pruned", c.Pruned),
		fmt.Sprintf("%d conflicts", c.Conflicts),
		fmt.Sprintf("%d unchanged", c.Unchanged),
		fmt.Sprintf("%d errors", c.Errors),
	}
	line := fmt.Sprintf("%d modules, %d files: %s", c.Modules, c.Files, strings.Join(parts, ", "))
	if d := report.Duration(); d > 0 {
		line += r.paint("Muted", fmt.Sprintf(" (%s)", d.Round(time.Millisecond)))
	}

	switch {
	case c.Errors > 0:
		return r.paint("Error", line)
	case c.Conflicts > 0:
		return r.paint("Warning", line)
	default:
		return r.paint("Success", line)
	}
}

func (r *textRenderer) RenderResolutions(rs []Resolution) error {
	var b strings.Builder
	for _, res := range rs {
		if res.Handled {
			fmt.Fprintf(&b, "%s %s → %s\n", r.paint("Success", indicatorChanged), res.Specifier, r.paint("Path", res.Path))
			continue
		}
		fmt.Fprintf(&b, "%s %s %s\n", r.paint("Muted", indicatorUnchanged), res.Specifier, r.paint("Muted", "(not handled)"))
	}
	return r.write(b.String())
}

func (r *textRenderer) RenderClassifications(cs []Classification) error {
	var b strings.Builder
	for _, c := range cs {
		fmt.Fprintf(&b, "%s %s → %s\n",
			r.paint(kindStyle(c.Destination.Kind.String()), c.Destination.Kind.String()),
			c.File,
			r.paint("Path", filepath.Join(c.Destination.Dir, c.Destination.Name)))
	}
	return r.write(b.String())
}

func kindStyle(kind string) string {
	switch kind {
	case "section":
		return "Linked"
	case "template":
		return "Repaired"
	default:
		return "Pruned"
	}
}

func (r *textRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if r.colors {
		return r.write(pterm.Error.Sprint(msg) + "\n")
	}
	return r.write("Error: " + msg + "\n")
}

func (r *textRenderer) RenderMessage(msg string) error {
	if r.colors {
		return r.write(pterm.Info.Sprint(msg) + "\n")
	}
	return r.write(msg + "\n")
}

func (r *textRenderer) write(s string) error {
	_, err := io.WriteString(r.w, s)
	return err
}

// rel shortens path against root for display, keeping it absolute when it
// lies outside.
func rel(root, path string) string {
	if root == "" {
		return path
	}
	out, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(out, "..") {
		return path
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
