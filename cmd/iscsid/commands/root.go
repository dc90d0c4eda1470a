// Package commands implements the iscsid CLI: a thin cobra tree around the
// negotiation engine, grounded on the teacher's cmd/dittofs/commands
// package layout (persistent --config flag, Execute/GetRootCmd, one file
// per subcommand).
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "iscsid",
	Short: "iSCSI login-phase text-parameter negotiation engine",
	Long: `iscsid drives the iSCSI login-phase key=value negotiation engine,
including its embedded CHAP authentication state machine.

It does not open a network listener: PDU framing and TCP transport are out
of scope (see SPEC_FULL.md). Use "iscsid negotiate" to run the engine
against a text fixture, or embed internal/target.Session directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/iscsid/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(negotiateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(credentialCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
