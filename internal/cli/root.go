package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/x31337/extsync/internal/branding"
	"github.com/x31337/extsync/internal/config"
	"github.com/x31337/extsync/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` reconciles a directory of .vsix extension packages against an editor's
installed-extensions registry (extensions.json), installing new packages,
updating older ones in place and leaving up-to-date ones untouched.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "", "Log level: debug, info, warn, error (default info)")
}

// setup loads configuration, binds any config-backed flags of the running
// command and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Load(); err != nil {
		return fatal(err)
	}
	bindConfigFlags(cmd)

	if _, err := logging.New(cmd.ErrOrStderr(), config.Get(config.KeyLogLevel)); err != nil {
		return fatal(err)
	}
	return nil
}

// bindConfigFlags lets flags named after config keys override the config
// file and environment.
func bindConfigFlags(cmd *cobra.Command) {
	for _, key := range config.Keys {
		if f := cmd.Flags().Lookup(key); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// Execute runs the root command with build info injected via ldflags. An
// interrupt cancels the running command's context.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
