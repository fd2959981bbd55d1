package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/TheusHen/sdict/sdict"
)

type options struct {
	configPath string
	logLevel   string
}

// client loads the config file and builds a client logging to stderr.
func (o *options) client(cmd *cobra.Command) (*sdict.Client, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		lvl, err := parseLevel(o.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = lvl
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	cfg.Client.Logger = &logger
	return sdict.NewClient(cfg.Client)
}

// NewRootCmd builds the sdict command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "sdict",
		Short: "SimpleDict client",
		Long: `sdict talks to a SimpleDict server: it downloads the dictionary,
keeps a local snapshot, and reads or modifies single keys.

Server address and passwords come from a TOML config file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "sdict.toml", "Path to the TOML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level, overrides log_level from the config")

	root.AddCommand(
		newFetchCmd(opts),
		newGetCmd(opts),
		newSetCmd(opts),
		newDelCmd(opts),
		newKeysCmd(opts),
		newSealCmd(),
		newOpenCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
