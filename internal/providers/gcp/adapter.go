package gcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"google.golang.org/api/compute/v1"

	"github.com/meridian-cp/meridian/internal/providers/bootstrap"
	"github.com/meridian-cp/meridian/internal/providers/kubeconfig"
	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/util/async"
	"github.com/meridian-cp/meridian/internal/util/keygen"
	"github.com/meridian-cp/meridian/internal/util/naming"
	"github.com/meridian-cp/meridian/internal/util/tags"
)

const (
	defaultMachineType = "e2-medium"
	defaultImage       = "projects/ubuntu-os-cloud/global/images/family/ubuntu-2404-lts-amd64"
	adminUser          = "meridian"
)

// Adapter provisions Compute Engine instances.
type Adapter struct {
	api    API
	region string
	log    logr.Logger
}

// New creates an Adapter authenticated with a service account key.
func New(ctx context.Context, creds types.Credentials, region string, log logr.Logger) (*Adapter, error) {
	client, err := NewRealClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		api:    client,
		region: region,
		log:    log.WithName("gcp"),
	}, nil
}

// zoneFor resolves the target zone. Compute Engine places instances in
// zones, not regions, so an unset zone falls back to the region's "a" zone.
func (a *Adapter) zoneFor(spec types.NodeSpec) string {
	if spec.Zone != "" {
		return spec.Zone
	}
	return a.region + "-a"
}

// Deploy creates spec.NodeCount instances concurrently, all labeled with a
// fresh deployment identifier.
func (a *Adapter) Deploy(ctx context.Context, spec types.NodeSpec) (*types.Result, error) {
	deploymentID := uuid.NewString()
	zone := a.zoneFor(spec)
	log := a.log.WithValues("cluster", spec.ClusterName, "deployment", deploymentID, "zone", zone)

	details := map[string]string{"sshUser": adminUser, "zone": zone}
	publicKey := spec.SSHPublicKey
	if publicKey == "" {
		keyPair, err := keygen.GenerateRSAKeyPair(keygen.DefaultBits)
		if err != nil {
			return nil, &types.DeployError{Provider: types.KindGCP, DeploymentID: deploymentID, Wanted: spec.NodeCount, Err: err}
		}
		publicKey = keyPair.PublicKeyString()
		details[types.DetailSSHPrivateKey] = string(keyPair.PrivateKey)
	}

	labels := toGCPLabels(tags.ForDeployment(deploymentID, spec.ClusterName))
	machineType := spec.MachineType
	if machineType == "" {
		machineType = defaultMachineType
	}

	indexes := make([]int, spec.NodeCount)
	for i := range indexes {
		indexes[i] = i + 1
	}

	log.Info("creating instances", "count", spec.NodeCount)
	nodes, createErr := async.CollectParallel(ctx, indexes, func(ctx context.Context, index int) (types.Node, error) {
		return a.createNode(ctx, createNodeParams{
			name:        naming.Node(spec.ClusterName, index),
			zone:        zone,
			machineType: machineType,
			publicKey:   publicKey,
			clusterName: spec.ClusterName,
			labels:      labels,
		})
	})
	if createErr != nil {
		created := 0
		for _, n := range nodes {
			if n.InstanceID != "" {
				created++
			}
		}
		log.Error(createErr, "instance creation failed", "created", created, "wanted", spec.NodeCount)
		return nil, &types.DeployError{
			Provider:     types.KindGCP,
			DeploymentID: deploymentID,
			Wanted:       spec.NodeCount,
			Created:      created,
			Err:          createErr,
		}
	}

	return &types.Result{
		Success:      true,
		DeploymentID: deploymentID,
		Nodes:        nodes,
		Details:      details,
	}, nil
}

type createNodeParams struct {
	name        string
	zone        string
	machineType string
	publicKey   string
	clusterName string
	labels      map[string]string
}

// createNode inserts one instance and reads it back for its identifier and
// addresses.
func (a *Adapter) createNode(ctx context.Context, p createNodeParams) (types.Node, error) {
	startup := bootstrap.Script(p.clusterName)
	sshKeys := fmt.Sprintf("%s:%s", adminUser, p.publicKey)

	instance := &compute.Instance{
		Name:        p.name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", p.zone, p.machineType),
		Labels:      p.labels,
		Disks: []*compute.AttachedDisk{{
			Boot:       true,
			AutoDelete: true,
			InitializeParams: &compute.AttachedDiskInitializeParams{
				SourceImage: defaultImage,
			},
		}},
		NetworkInterfaces: []*compute.NetworkInterface{{
			Network: "global/networks/default",
			AccessConfigs: []*compute.AccessConfig{{
				Type: "ONE_TO_ONE_NAT",
				Name: "External NAT",
			}},
		}},
		Metadata: &compute.Metadata{
			Items: []*compute.MetadataItems{
				{Key: "startup-script", Value: &startup},
				{Key: "ssh-keys", Value: &sshKeys},
			},
		},
	}

	if err := a.api.InsertInstance(ctx, p.zone, instance); err != nil {
		return types.Node{}, err
	}

	created, err := a.api.GetInstance(ctx, p.zone, p.name)
	if err != nil {
		return types.Node{}, err
	}
	return nodeFromInstance(created), nil
}

func nodeFromInstance(instance *compute.Instance) types.Node {
	node := types.Node{
		InstanceID: strconv.FormatUint(instance.Id, 10),
		Name:       instance.Name,
		State:      types.NodeStatePending,
	}
	if instance.Status == "RUNNING" {
		node.State = types.NodeStateRunning
	}
	if len(instance.NetworkInterfaces) > 0 {
		iface := instance.NetworkInterfaces[0]
		node.PrivateAddr = iface.NetworkIP
		if len(iface.AccessConfigs) > 0 {
			node.PublicAddr = iface.AccessConfigs[0].NatIP
		}
	}
	return node
}

// Destroy deletes every instance labeled with the deployment identifier.
// The zone is recovered from the stored deployment details so deployments
// placed outside the region default are still found. An already-empty
// deployment succeeds with count 0.
func (a *Adapter) Destroy(ctx context.Context, result *types.Result) (*types.DestroyOutcome, error) {
	zone := result.Details["zone"]
	if zone == "" {
		zone = a.zoneFor(types.NodeSpec{})
	}
	return a.DestroyInZone(ctx, result.DeploymentID, zone)
}

// DestroyInZone deletes the deployment's instances in a specific zone.
// Deletions are independent per instance and run concurrently.
func (a *Adapter) DestroyInZone(ctx context.Context, deploymentID, zone string) (*types.DestroyOutcome, error) {
	filter := labelFilter(tags.SelectorForDeployment(deploymentID))
	instances, err := a.api.ListInstances(ctx, zone, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to discover instances for deployment %s: %w", deploymentID, err)
	}

	deletions := make([]async.Task, 0, len(instances))
	for _, instance := range instances {
		if instance == nil || instance.Name == "" {
			continue
		}
		name := instance.Name
		deletions = append(deletions, async.Task{
			Name: name,
			Func: func(ctx context.Context) error {
				return a.api.DeleteInstance(ctx, zone, name)
			},
		})
	}
	if err := async.RunParallel(ctx, deletions); err != nil {
		return nil, fmt.Errorf("failed to delete instances for deployment %s: %w", deploymentID, err)
	}

	a.log.Info("destroyed deployment", "deployment", deploymentID, "zone", zone, "count", len(deletions))
	return &types.DestroyOutcome{Success: true, Count: len(deletions)}, nil
}

// Kubeconfig reads the cluster's kubeconfig from a representative node.
func (a *Adapter) Kubeconfig(ctx context.Context, result *types.Result) (string, error) {
	auth := kubeconfig.Auth{User: adminUser}
	if result != nil {
		if user := result.Details["sshUser"]; user != "" {
			auth.User = user
		}
		if key := result.Details[types.DetailSSHPrivateKey]; key != "" {
			auth.PrivateKey = []byte(key)
		}
	}
	return kubeconfig.Fetch(ctx, result, auth)
}

// gcpLabelKey rewrites a tag key to satisfy Compute Engine label rules,
// which allow only lowercase letters, digits, underscores and hyphens.
func gcpLabelKey(key string) string {
	key = strings.ReplaceAll(key, ".", "-")
	key = strings.ReplaceAll(key, "/", "_")
	return strings.ToLower(key)
}

func toGCPLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[gcpLabelKey(key)] = strings.ToLower(value)
	}
	return out
}

// labelFilter builds a Compute Engine list filter from a tag selector.
func labelFilter(selector map[string]string) string {
	parts := make([]string, 0, len(selector))
	for key, value := range selector {
		parts = append(parts, fmt.Sprintf("labels.%s=%q", gcpLabelKey(key), strings.ToLower(value)))
	}
	return strings.Join(parts, " AND ")
}
