// Package cli implements the trigsched command line using cobra.
package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

const defaultConfigPath = "./trigsched.yaml"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trigsched",
		Short:         "Time-based trigger scheduler",
		Long:          "trigsched fires interval and daily range triggers and publishes their commands.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to config (json or yaml)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	return root
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	if p == "" {
		return defaultConfigPath
	}
	return p
}
