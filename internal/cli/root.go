// Package cli wires the stage to the command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kbolino/go-cgobind/internal/config"
	"github.com/kbolino/go-cgobind/internal/logutil"
	"github.com/kbolino/go-cgobind/internal/stage"
	"github.com/kbolino/go-cgobind/internal/translate"
)

type options struct {
	configFile string
	env        config.Env
	syntax     string
	cpp        string
	debug      bool
	trace      bool
}

// NewRootCommand returns the cgobind command and its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "cgobind",
		Short: "Generate cgo bindings for a native library at build time",
		Long: `cgobind mirrors the public headers of a native library into the build
output directory, generates cgo bindings for the allowlisted declarations,
and prints link directives for the enclosing build system.

The project root and output directory are taken from CARGO_MANIFEST_DIR and
OUT_DIR unless given as flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			tr := &translate.CC{CPP: cfg.Preprocessor()}
			return stage.Run(cmd.Context(), env, cfg, tr, cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is cgobind.yaml in the project root)")
	flags.StringVar(&opts.env.Root, "root", "", "project root (default $"+config.RootVar+")")
	flags.StringVar(&opts.env.OutDir, "out-dir", "", "build output directory (default $"+config.OutDirVar+")")
	flags.StringVar(&opts.env.TargetOS, "target-os", "", "target operating system (default $"+config.TargetOSVar+", then $GOOS)")
	flags.StringVar(&opts.syntax, "syntax", "", "directive syntax, cargo or cgo (overrides the config file)")
	flags.StringVar(&opts.cpp, "cpp", "", "path to the C preprocessor, or 'none' (overrides the config file)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.trace, "trace", false, "enable trace logging")

	rootCmd.AddCommand(newDirectivesCommand(opts))
	rootCmd.AddCommand(newSymbolsCommand(opts))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// load sets up logging and reads the environment and configuration, with
// flags taking precedence.
func (o *options) load(logOut io.Writer) (config.Env, *config.Config, error) {
	slog.SetDefault(logutil.NewLogger(logOut, logutil.Level(o.debug, o.trace)))
	env, err := config.LoadEnv(o.env, nil)
	if err != nil {
		return config.Env{}, nil, err
	}
	cfg, err := config.Load(env.ConfigFile(o.configFile))
	if err != nil {
		return config.Env{}, nil, err
	}
	if o.syntax != "" {
		cfg.Syntax = o.syntax
	}
	if o.cpp != "" {
		cfg.CPP = o.cpp
	}
	if err := cfg.Validate(); err != nil {
		return config.Env{}, nil, err
	}
	slog.Debug("loaded configuration", "root", env.Root, "out_dir", env.OutDir, "target_os", env.TargetOS,
		"include_path", cfg.IncludePath)
	return env, cfg, nil
}
