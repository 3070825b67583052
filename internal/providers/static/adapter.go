// Package static implements the provider adapter for pre-existing hosts.
//
// Nothing is provisioned remotely. Deploy registers the configured host as
// the cluster's single node and Destroy releases only local state, leaving
// the machine untouched.
package static

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/meridian-cp/meridian/internal/providers/kubeconfig"
	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/util/naming"
)

// Adapter wraps a single operator-managed host.
type Adapter struct {
	creds types.Credentials
	log   logr.Logger
}

// New creates an Adapter for the host named in the credentials.
func New(creds types.Credentials, log logr.Logger) (*Adapter, error) {
	if creds.Host == "" || creds.User == "" {
		return nil, fmt.Errorf("static credentials need host and user")
	}
	return &Adapter{creds: creds, log: log.WithName("static")}, nil
}

// Deploy registers the host as the sole cluster node. Requested node count
// and machine type are ignored; the host is what it is.
func (a *Adapter) Deploy(ctx context.Context, spec types.NodeSpec) (*types.Result, error) {
	deploymentID := uuid.NewString()
	a.log.Info("registering static host", "cluster", spec.ClusterName, "host", a.creds.Host, "deployment", deploymentID)

	details := map[string]string{"sshUser": a.creds.User, "host": a.creds.Host}
	if a.creds.SSHPrivateKey != "" {
		details[types.DetailSSHPrivateKey] = a.creds.SSHPrivateKey
	}

	return &types.Result{
		Success:      true,
		DeploymentID: deploymentID,
		Nodes: []types.Node{{
			InstanceID: "static-" + a.creds.Host,
			Name:       naming.Node(spec.ClusterName, 1),
			PublicAddr: a.creds.Host,
			State:      types.NodeStateRunning,
		}},
		Details: details,
	}, nil
}

// Destroy releases nothing remotely. The host stays as it is and the caller
// drops its own records.
func (a *Adapter) Destroy(ctx context.Context, result *types.Result) (*types.DestroyOutcome, error) {
	a.log.Info("releasing static host", "deployment", result.DeploymentID)
	return &types.DestroyOutcome{Success: true, Count: 0}, nil
}

// Kubeconfig reads the kubeconfig over SSH using the host credentials.
func (a *Adapter) Kubeconfig(ctx context.Context, result *types.Result) (string, error) {
	auth := kubeconfig.Auth{
		User:     a.creds.User,
		Password: a.creds.Password,
	}
	if a.creds.SSHPrivateKey != "" {
		auth.PrivateKey = []byte(a.creds.SSHPrivateKey)
	}
	return kubeconfig.Fetch(ctx, result, auth)
}
