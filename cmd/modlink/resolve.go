package modlink

import (
	"errors"
	"fmt"
	"sort"

	"github.com/liquidmods/modlink/pkg/resolve"
	"github.com/liquidmods/modlink/pkg/style"
	"github.com/spf13/cobra"
)

func newResolveCmd(a *app) *cobra.Command {
	var aliases bool

	cmd := &cobra.Command{
		Use:     "resolve <specifier>...",
		Short:   MsgResolveShort,
		Long:    MsgResolveLong,
		Example: MsgResolveExample,
		GroupID: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !aliases && len(args) == 0 {
				return errors.New(MsgNoSpecifiers)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd, style.Options{})
			if err != nil {
				return err
			}

			resolver := resolve.New(cfg.ModulesDir,
				resolve.WithExtensions(cfg.Resolve.Extensions),
				resolve.WithAliases(cfg.Resolve.Aliases),
			)

			if aliases {
				table := resolver.Aliases()
				names := make([]string, 0, len(table))
				for name := range table {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					if err := r.RenderMessage(fmt.Sprintf(MsgAliasLine, name, table[name])); err != nil {
						return err
					}
				}
				return nil
			}

			results := make([]style.Resolution, 0, len(args))
			for _, spec := range args {
				path, ok, err := resolver.Resolve(spec)
				if err != nil {
					return err
				}
				results = append(results, style.Resolution{Specifier: spec, Path: path, Handled: ok})
			}
			return r.RenderResolutions(results)
		},
	}

	cmd.Flags().BoolVar(&aliases, "aliases", false, MsgFlagAliases)
	return cmd
}
