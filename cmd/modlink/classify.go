package modlink

import (
	"github.com/liquidmods/modlink/pkg/style"
	"github.com/spf13/cobra"
)

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "classify <filename>...",
		Short:   MsgClassifyShort,
		Long:    MsgClassifyLong,
		GroupID: "inspect",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd, style.Options{})
			if err != nil {
				return err
			}

			layout := cfg.Layout()
			results := make([]style.Classification, 0, len(args))
			for _, name := range args {
				results = append(results, style.Classification{File: name, Destination: layout.Classify(name)})
			}
			return r.RenderClassifications(results)
		},
	}
}
