package modlink

import (
	"fmt"

	"github.com/liquidmods/modlink/pkg/config"
	"github.com/liquidmods/modlink/pkg/coordinator"
	"github.com/liquidmods/modlink/pkg/filesystem"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/liquidmods/modlink/pkg/style"
	"github.com/spf13/cobra"
)

// newScanner wires a scanner to the OS filesystem from cfg.
func newScanner(cfg *config.Config, dryRun bool) *scanner.Scanner {
	return scanner.New(filesystem.NewOS(), scanner.Options{
		ModulesDir:       cfg.ModulesDir,
		Layout:           cfg.Layout(),
		Ignore:           cfg.Scan.Ignore,
		RepairCandidates: cfg.Link.RepairCandidates,
		DryRun:           dryRun,
	})
}

func scanError(err error) error {
	return fmt.Errorf(MsgErrScan, err)
}

func newLinkCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "link",
		Short:   MsgLinkShort,
		Long:    MsgLinkLong,
		Example: MsgLinkExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cmd.link")

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd, style.Options{})
			if err != nil {
				return err
			}

			done := logging.LogOperationStart(logger, "link")
			report, scanErr := coordinator.New(newScanner(cfg, dryRun)).RunOnce(cmd.Context())
			done()

			if report != nil {
				if err := r.RenderReport(report); err != nil {
					return err
				}
			}
			if scanErr != nil {
				return scanError(scanErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, MsgFlagDryRun)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   MsgStatusShort,
		Long:    MsgStatusLong,
		GroupID: "inspect",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd, style.Options{ShowUnchanged: true})
			if err != nil {
				return err
			}

			report, scanErr := newScanner(cfg, true).Scan(cmd.Context())
			if report != nil {
				if err := r.RenderReport(report); err != nil {
					return err
				}
			}
			if scanErr != nil {
				return scanError(scanErr)
			}
			return nil
		},
	}
}
