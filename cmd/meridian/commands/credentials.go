package commands

import (
	"github.com/spf13/cobra"

	"github.com/meridian-cp/meridian/cmd/meridian/handlers"
)

// Credentials returns the credentials command group.
func Credentials() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage provider credentials",
	}

	cmd.AddCommand(credentialsStatus())
	cmd.AddCommand(credentialsConnect())
	cmd.AddCommand(credentialsDisconnect())

	return cmd
}

func credentialsStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection state of every provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CredentialsStatus(cmd.Context(), configPath(cmd))
		},
	}
}

func credentialsConnect() *cobra.Command {
	var file string
	var name string

	cmd := &cobra.Command{
		Use:   "connect <provider>",
		Short: "Validate and store credentials for a provider",
		Long: `Connect validates credentials against the live provider and stores them
encrypted. Nothing is persisted when the provider rejects them.

The credentials document is JSON with provider-specific fields:

  aws:    {"accessKeyId": "...", "secretAccessKey": "..."}
  azure:  {"tenantId": "...", "clientId": "...", "clientSecret": "...", "subscriptionId": "..."}
  gcp:    {"serviceAccountJson": "...", "projectId": "..."}
  static: {"host": "...", "user": "...", "sshPrivateKey": "..."}

Example:
  meridian credentials connect aws --from-file aws.json
  meridian credentials connect aws --from-file aws.json --name "team-ci account"
  cat aws.json | meridian credentials connect aws --from-file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.CredentialsConnect(cmd.Context(), configPath(cmd), args[0], file, name)
		},
	}

	cmd.Flags().StringVarP(&file, "from-file", "f", "", "Path to the JSON credentials document, or - for stdin (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the stored credentials (default: derived from the validated identity)")
	_ = cmd.MarkFlagRequired("from-file")

	return cmd
}

func credentialsDisconnect() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <provider>",
		Short: "Remove stored credentials for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.CredentialsDisconnect(cmd.Context(), configPath(cmd), args[0])
		},
	}
}
