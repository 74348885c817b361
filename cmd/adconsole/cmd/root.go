package cmd

import (
	"errors"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/jmcleod/adconsole/gateway"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

type rootOptions struct {
	configPath string
	apiURL     string
	lang       string
	logLevel   string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "adconsole",
		Short: "adconsole is the operator console of the DSP admin backend",
		Long: `An operator console for the DSP advertising admin backend.
Log in once, then browse advertisers, campaigns, creatives, reports and users
from the terminal. The session token is sealed on disk and reused until it
expires or you log out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the config file (YAML or .toml)")
	flags.StringVar(&opts.apiURL, "api-url", "", "Backend API base URL")
	flags.StringVar(&opts.lang, "lang", "", "Message language (en, zh)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newCSRFCmd(opts),
		newStatusCmd(opts),
		newOpenCmd(opts),
		newRoutesCmd(opts),
		newConsoleCmd(opts),
		newAdvertisersCmd(opts),
		newCampaignsCmd(opts),
		newCreativesCmd(opts),
		newReportsCmd(opts),
		newUsersCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			printBanner(cmd.OutOrStdout())
		},
	}
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var shown reportedError
		if !errors.As(err, &shown) {
			root.PrintErrln("Error:", err)
		}
		memguard.SafeExit(1)
	}
}

// reportedError is a failure the notifier already showed the operator.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// reported marks err as already shown when the gateway surfaced it.
func reported(err error) error {
	if err == nil {
		return nil
	}
	if k := gateway.KindOf(err); k != "" && k != gateway.KindStale {
		return reportedError{err}
	}
	return err
}
