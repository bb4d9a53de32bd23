package modlink

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/liquidmods/modlink/pkg/config"
	"github.com/liquidmods/modlink/pkg/coordinator"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/liquidmods/modlink/pkg/style"
	"github.com/liquidmods/modlink/pkg/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:     "watch",
		Short:   MsgWatchShort,
		Long:    MsgWatchLong,
		Example: MsgWatchExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("window") {
				cfg.Watch.Window = window
			}
			r, err := a.renderer(cmd, style.Options{})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cfg, r)
		},
	}

	cmd.Flags().DurationVar(&window, "window", coordinator.DefaultWindow, MsgFlagWindow)
	return cmd
}

// runWatch reconciles once, then reconciles on every accepted change until
// ctx is done. Scan failures are logged by the coordinator and never end
// the loop; only a broken watcher does.
func runWatch(ctx context.Context, cfg *config.Config, r style.Renderer) error {
	logger := logging.GetLogger("cmd.watch")

	var mu sync.Mutex
	show := func(reason string, report *scanner.Report, err error) {
		if report == nil {
			return
		}
		c := report.Counts
		if reason != "once" && c.Changed() == 0 && c.Conflicts == 0 && c.Errors == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if renderErr := r.RenderReport(report); renderErr != nil {
			logger.Warn().Err(renderErr).Msg("Render report")
		}
	}

	coord := coordinator.New(newScanner(cfg, false),
		coordinator.WithWindow(cfg.Watch.Window),
		coordinator.WithResultFunc(show),
	)

	if _, err := coord.RunOnce(ctx); err != nil {
		logger.Error().Err(err).Msg("Initial reconciliation failed, watching anyway")
	}

	layout := cfg.Layout()
	w, err := watch.New(watch.Config{
		ModulesDir:    cfg.ModulesDir,
		ThemeRoot:     cfg.ThemeRoot,
		ThemeDirs:     layout.ThemeDirs(),
		ThemePatterns: cfg.Watch.ThemePatterns,
		Ignore:        cfg.Watch.Ignore,
		OnEvent: func(ctx context.Context, ev watch.Event) {
			coord.Trigger(ctx, ev.Rel)
		},
	})
	if err != nil {
		return fmt.Errorf(MsgErrWatch, err)
	}

	mu.Lock()
	_ = r.RenderMessage(fmt.Sprintf(MsgWatching, cfg.ModulesDir))
	mu.Unlock()

	runErr := w.Run(ctx)
	coord.Wait()

	fired, suppressed := coord.Stats()
	logger.Info().Uint64("scans", fired).Uint64("dropped", suppressed).Msg(MsgWatchStopped)

	if runErr != nil {
		return fmt.Errorf(MsgErrWatch, runErr)
	}
	return nil
}
