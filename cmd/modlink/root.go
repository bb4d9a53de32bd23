// Package modlink holds the modlink command tree. The binary lives in
// cmd/modlink/main so the man page generator can build the same tree.
package modlink

import (
	"embed"
	"fmt"

	"github.com/liquidmods/modlink/internal/version"
	"github.com/liquidmods/modlink/pkg/cobrax/topics"
	"github.com/liquidmods/modlink/pkg/config"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/style"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed topics/*.md
var topicsFS embed.FS

// app carries the global flags to the subcommands.
type app struct {
	verbosity  int
	root       string
	configFile string
	modulesDir string
	themeRoot  string
	format     string
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "modlink",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(a.verbosity)
			logging.LogCommand(cmd.CommandPath(), args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVar(&a.root, "root", "", MsgFlagRoot)
	flags.StringVar(&a.configFile, "config", "", MsgFlagConfig)
	flags.StringVar(&a.modulesDir, "modules-dir", "", MsgFlagModulesDir)
	flags.StringVar(&a.themeRoot, "theme-root", "", MsgFlagThemeRoot)
	flags.StringVar(&a.format, "format", "auto", MsgFlagFormat)
	_ = rootCmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "term", "text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "INSPECT:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newLinkCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newResolveCmd(a))
	rootCmd.AddCommand(newClassifyCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newTopicsCmd())
	rootCmd.AddCommand(newCompletionCmd())

	tm, err := topics.Load(topicsFS, "topics", topics.Options{Renderer: topics.NewGlamourRenderer()})
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	} else {
		tm.Install(rootCmd)
		rootCmd.SetHelpCommandGroupID("misc")
	}

	return rootCmd
}

// loadConfig builds the effective configuration from the global flags and
// re-opens the log file with the configured rotation.
func (a *app) loadConfig() (*config.Config, error) {
	overrides := map[string]interface{}{}
	if a.modulesDir != "" {
		overrides["modules_dir"] = a.modulesDir
	}
	if a.themeRoot != "" {
		overrides["theme_root"] = a.themeRoot
	}

	cfg, err := config.Load(config.LoadOptions{
		ProjectRoot: a.root,
		ConfigFile:  a.configFile,
		Overrides:   overrides,
	})
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}

	logging.SetupLoggerWithOptions(a.verbosity, cfg.LogOptions())
	return cfg, nil
}

func (a *app) renderer(cmd *cobra.Command, opts style.Options) (style.Renderer, error) {
	format, err := style.ParseFormat(a.format)
	if err != nil {
		return nil, err
	}
	return style.NewRenderer(format, cmd.OutOrStdout(), opts)
}
