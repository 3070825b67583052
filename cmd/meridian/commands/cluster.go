package commands

import (
	"github.com/spf13/cobra"

	"github.com/meridian-cp/meridian/cmd/meridian/handlers"
)

// Cluster returns the cluster command group.
func Cluster() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Manage compute clusters",
	}

	cmd.AddCommand(clusterCreate())
	cmd.AddCommand(clusterDestroy())
	cmd.AddCommand(clusterKubeconfig())
	cmd.AddCommand(clusterList())

	return cmd
}

func clusterCreate() *cobra.Command {
	var opts handlers.CreateOptions

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision a new cluster",
		Long: `Create persists the cluster record and provisions it in the background.
The command returns as soon as the record is accepted; use --wait to block
until provisioning settles, or check progress with cluster list.

Example:
  meridian cluster create demo --provider aws --region eu-west-1 --nodes 3
  meridian cluster create edge --provider static --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			return handlers.ClusterCreate(cmd.Context(), configPath(cmd), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Provider, "provider", "p", "", "Provider kind: aws, azure, gcp or static (required)")
	cmd.Flags().StringVarP(&opts.Region, "region", "r", "", "Provider region")
	cmd.Flags().StringVar(&opts.Zone, "zone", "", "Provider zone (gcp)")
	cmd.Flags().IntVarP(&opts.NodeCount, "nodes", "n", 1, "Number of nodes")
	cmd.Flags().StringVarP(&opts.MachineType, "machine-type", "m", "", "Provider machine type")
	cmd.Flags().StringToStringVar(&opts.Extras, "extra", nil, "Provider-specific settings (e.g. --extra subnetId=...)")
	cmd.Flags().BoolVarP(&opts.Wait, "wait", "w", false, "Block until provisioning settles")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func clusterDestroy() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <cluster-id>",
		Short: "Tear down a cluster and remove its record",
		Long: `Destroy removes the cluster's remote resources and deletes the local
record. The record is deleted even when remote teardown fails, so re-running
destroy is never required for local cleanup.

WARNING: This operation is irreversible. All cluster data will be lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ClusterDestroy(cmd.Context(), configPath(cmd), args[0])
		},
	}
}

func clusterKubeconfig() *cobra.Command {
	return &cobra.Command{
		Use:   "kubeconfig <cluster-id>",
		Short: "Print the kubeconfig of an active cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ClusterKubeconfig(cmd.Context(), configPath(cmd), args[0])
		},
	}
}

func clusterList() *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clusters and their status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ClusterList(cmd.Context(), configPath(cmd), org)
		},
	}

	cmd.Flags().StringVar(&org, "org", "default", "Organization to list; empty lists all")

	return cmd
}
