// Package cli implements the daybook command line tool.
package cli

import (
	"daybook-ndjson-backend/internal/config"
	"daybook-ndjson-backend/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCmd builds the daybook command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "daybook",
		Short: "Convert Tally daybook JSON exports to NDJSON",
		Long: `daybook flattens Tally daybook exports into one JSON object per ledger entry.

Example:
  daybook convert april.json -o ./out
  daybook serve`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default $CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(newConvertCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load(cmd *cobra.Command, format string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if format == "" {
		format = cfg.LogFormat
	}
	return cfg, logging.New(cfg.LogLevel, format, cmd.ErrOrStderr()), nil
}
