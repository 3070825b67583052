package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/store"
)

// CreateOptions carries the flags of the cluster create command.
type CreateOptions struct {
	Name        string
	Provider    string
	Region      string
	Zone        string
	NodeCount   int
	MachineType string
	Extras      map[string]string

	// Wait blocks until the asynchronous provisioning attempt settles
	// instead of returning right after the record is accepted.
	Wait bool
}

// ClusterCreate handles the cluster create command.
//
// It persists a pending cluster record, kicks off asynchronous provisioning
// and prints the cluster id immediately. The record settles to active or
// error in the background.
func ClusterCreate(ctx context.Context, configPath string, opts CreateOptions) error {
	kind, err := types.ParseKind(opts.Provider)
	if err != nil {
		return err
	}
	if opts.Name == "" {
		return fmt.Errorf("cluster name is required")
	}
	if opts.NodeCount < 1 {
		opts.NodeCount = 1
	}

	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	// Refuse up front when no credentials are connected; the async attempt
	// would only settle the record to error.
	status, err := app.Vault.StatusFor(ctx, store.DefaultOrgID, kind)
	if err != nil {
		return err
	}
	if !status.Connected {
		return fmt.Errorf("no %s credentials connected; run `meridian credentials connect %s` first", kind, kind)
	}

	cluster := store.Cluster{
		ID:        uuid.NewString(),
		Name:      opts.Name,
		Provider:  string(kind),
		Region:    opts.Region,
		NodeCount: opts.NodeCount,
		Status:    store.StatusPending,
		OrgID:     store.DefaultOrgID,
	}
	if err := app.Store.InsertCluster(ctx, &cluster); err != nil {
		return err
	}

	app.Provisioner.Provision(cluster, types.NodeSpec{
		ClusterName: opts.Name,
		NodeCount:   opts.NodeCount,
		MachineType: opts.MachineType,
		Region:      opts.Region,
		Zone:        opts.Zone,
		Extras:      opts.Extras,
	})

	fmt.Printf("cluster %s accepted (id %s)\n", opts.Name, cluster.ID)

	if !opts.Wait {
		return nil
	}

	app.Provisioner.Wait()
	settled, err := app.Store.GetCluster(ctx, cluster.ID)
	if err != nil {
		return err
	}
	fmt.Printf("cluster %s is %s\n", settled.Name, settled.Status)
	if settled.Status == store.StatusError {
		return fmt.Errorf("provisioning failed; run `meridian cluster list` for details")
	}
	return nil
}

// ClusterDestroy handles the cluster destroy command.
//
// Remote resources are torn down best effort; the local record is removed
// either way so the cluster never lingers.
func ClusterDestroy(ctx context.Context, configPath, id string) error {
	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	outcome, err := app.Provisioner.Destroy(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("cluster %s destroyed (%d remote resources removed)\n", id, outcome.Count)
	return nil
}

// ClusterKubeconfig handles the cluster kubeconfig command. The document is
// written to stdout for piping into a file or KUBECONFIG.
func ClusterKubeconfig(ctx context.Context, configPath, id string) error {
	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	doc, err := app.Provisioner.Kubeconfig(ctx, id)
	if err != nil {
		return err
	}
	fmt.Print(doc)
	return nil
}

// ClusterList handles the cluster list command. An empty orgID lists every
// organization's clusters.
func ClusterList(ctx context.Context, configPath, orgID string) error {
	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	clusters, err := app.Store.ListClusters(ctx, orgID)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("no clusters")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-8s  %-12s  %-5s  %s\n", "ID", "NAME", "PROVIDER", "REGION", "NODES", "STATUS")
	for _, c := range clusters {
		fmt.Printf("%-36s  %-20s  %-8s  %-12s  %-5d  %s\n", c.ID, c.Name, c.Provider, c.Region, c.NodeCount, c.Status)
	}
	return nil
}
