// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the meridian CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meridian",
		Short: "Provision isolated compute clusters across cloud providers",
	}

	cmd.PersistentFlags().StringP("config", "c", "meridian.yaml", "Path to the control plane configuration file")

	cmd.AddCommand(Credentials())
	cmd.AddCommand(Cluster())
	cmd.AddCommand(Version())

	return cmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
