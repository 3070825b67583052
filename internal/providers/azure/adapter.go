package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/meridian-cp/meridian/internal/providers/bootstrap"
	"github.com/meridian-cp/meridian/internal/providers/kubeconfig"
	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/util/async"
	"github.com/meridian-cp/meridian/internal/util/keygen"
	"github.com/meridian-cp/meridian/internal/util/naming"
	"github.com/meridian-cp/meridian/internal/util/tags"
)

const (
	defaultMachineType   = "Standard_B2s"
	defaultResourceGroup = "meridian"
	adminUser            = "meridian"
)

// Adapter provisions Azure virtual machines.
type Adapter struct {
	api           API
	resourceGroup string
	region        string
	log           logr.Logger
}

// New creates an Adapter authenticated with a service principal.
func New(creds types.Credentials, region string, log logr.Logger) (*Adapter, error) {
	client, err := NewRealClient(creds)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		api:           client,
		resourceGroup: defaultResourceGroup,
		region:        region,
		log:           log.WithName("azure"),
	}, nil
}

// Deploy creates spec.NodeCount VMs concurrently, each with its own public
// IP and NIC, all tagged with a fresh deployment identifier.
func (a *Adapter) Deploy(ctx context.Context, spec types.NodeSpec) (*types.Result, error) {
	deploymentID := uuid.NewString()
	log := a.log.WithValues("cluster", spec.ClusterName, "deployment", deploymentID)

	resourceGroup := spec.Extra("resourceGroup", a.resourceGroup)
	subnetID := spec.Extra("subnetId", "")
	if subnetID == "" {
		return nil, &types.DeployError{
			Provider: types.KindAzure, DeploymentID: deploymentID, Wanted: spec.NodeCount,
			Err: fmt.Errorf("azure deploys need a subnetId extra"),
		}
	}

	details := map[string]string{"sshUser": adminUser, "resourceGroup": resourceGroup}
	publicKey := spec.SSHPublicKey
	if publicKey == "" {
		keyPair, err := keygen.GenerateRSAKeyPair(keygen.DefaultBits)
		if err != nil {
			return nil, &types.DeployError{Provider: types.KindAzure, DeploymentID: deploymentID, Wanted: spec.NodeCount, Err: err}
		}
		publicKey = keyPair.PublicKeyString()
		details[types.DetailSSHPrivateKey] = string(keyPair.PrivateKey)
	}

	deployTags := toARMTags(tags.ForDeployment(deploymentID, spec.ClusterName))
	machineType := spec.MachineType
	if machineType == "" {
		machineType = defaultMachineType
	}

	indexes := make([]int, spec.NodeCount)
	for i := range indexes {
		indexes[i] = i + 1
	}

	log.Info("creating virtual machines", "count", spec.NodeCount, "resourceGroup", resourceGroup)
	nodes, createErr := async.CollectParallel(ctx, indexes, func(ctx context.Context, index int) (types.Node, error) {
		return a.createNode(ctx, createNodeParams{
			name:          naming.Node(spec.ClusterName, index),
			resourceGroup: resourceGroup,
			subnetID:      subnetID,
			machineType:   machineType,
			publicKey:     publicKey,
			clusterName:   spec.ClusterName,
			tags:          deployTags,
		})
	})
	if createErr != nil {
		created := 0
		for _, n := range nodes {
			if n.InstanceID != "" {
				created++
			}
		}
		log.Error(createErr, "vm creation failed", "created", created, "wanted", spec.NodeCount)
		return nil, &types.DeployError{
			Provider:     types.KindAzure,
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
	name          string
	resourceGroup string
	subnetID      string
	machineType   string
	publicKey     string
	clusterName   string
	tags          map[string]*string
}

// createNode brings up public IP, NIC and VM for one node.
func (a *Adapter) createNode(ctx context.Context, p createNodeParams) (types.Node, error) {
	ip, err := a.api.CreatePublicIP(ctx, p.resourceGroup, p.name+"-ip", armnetwork.PublicIPAddress{
		Location: to.Ptr(a.region),
		Tags:     p.tags,
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
		},
	})
	if err != nil {
		return types.Node{}, err
	}

	nic, err := a.api.CreateNIC(ctx, p.resourceGroup, p.name+"-nic", armnetwork.Interface{
		Location: to.Ptr(a.region),
		Tags:     p.tags,
		Properties: &armnetwork.InterfacePropertiesFormat{
			IPConfigurations: []*armnetwork.InterfaceIPConfiguration{{
				Name: to.Ptr("primary"),
				Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
					Subnet:                    &armnetwork.Subnet{ID: to.Ptr(p.subnetID)},
					PrivateIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
					PublicIPAddress:           &armnetwork.PublicIPAddress{ID: ip.ID},
				},
			}},
		},
	})
	if err != nil {
		return types.Node{}, err
	}

	vm, err := a.api.CreateVM(ctx, p.resourceGroup, p.name, armcompute.VirtualMachine{
		Location: to.Ptr(a.region),
		Tags:     p.tags,
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(p.machineType)),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: &armcompute.ImageReference{
					Publisher: to.Ptr("Canonical"),
					Offer:     to.Ptr("ubuntu-24_04-lts"),
					SKU:       to.Ptr("server"),
					Version:   to.Ptr("latest"),
				},
				OSDisk: &armcompute.OSDisk{
					CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
					ManagedDisk: &armcompute.ManagedDiskParameters{
						StorageAccountType: to.Ptr(armcompute.StorageAccountTypesStandardSSDLRS),
					},
				},
			},
			OSProfile: &armcompute.OSProfile{
				ComputerName:  to.Ptr(p.name),
				AdminUsername: to.Ptr(adminUser),
				CustomData:    to.Ptr(bootstrap.ScriptBase64(p.clusterName)),
				LinuxConfiguration: &armcompute.LinuxConfiguration{
					DisablePasswordAuthentication: to.Ptr(true),
					SSH: &armcompute.SSHConfiguration{
						PublicKeys: []*armcompute.SSHPublicKey{{
							Path:    to.Ptr(fmt.Sprintf("/home/%s/.ssh/authorized_keys", adminUser)),
							KeyData: to.Ptr(p.publicKey),
						}},
					},
				},
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{{
					ID: nic.ID,
				}},
			},
		},
	})
	if err != nil {
		return types.Node{}, err
	}

	node := types.Node{
		Name:  p.name,
		State: types.NodeStatePending,
	}
	if vm.Properties != nil && vm.Properties.VMID != nil {
		node.InstanceID = *vm.Properties.VMID
	}
	if node.InstanceID == "" && vm.ID != nil {
		node.InstanceID = *vm.ID
	}
	if ip.Properties != nil && ip.Properties.IPAddress != nil {
		node.PublicAddr = *ip.Properties.IPAddress
	}
	return node, nil
}

// Destroy deletes every VM tagged with the deployment identifier together
// with its NIC and public IP. Discovery runs against the resource group the
// deploy recorded in the result details, so deployments placed outside the
// default group are still found. An already-empty deployment succeeds with
// count 0.
func (a *Adapter) Destroy(ctx context.Context, result *types.Result) (*types.DestroyOutcome, error) {
	deploymentID := result.DeploymentID
	resourceGroup := a.resourceGroup
	if rg := result.Details["resourceGroup"]; rg != "" {
		resourceGroup = rg
	}

	vms, err := a.api.ListVMs(ctx, resourceGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to discover VMs for deployment %s: %w", deploymentID, err)
	}

	selector := tags.SelectorForDeployment(deploymentID)
	count := 0
	for _, vm := range vms {
		if vm == nil || vm.Name == nil || !matchesTags(vm.Tags, selector) {
			continue
		}
		name := *vm.Name
		if err := a.api.DeleteVM(ctx, resourceGroup, name); err != nil {
			return nil, err
		}
		// NIC and IP follow the node naming convention.
		if err := a.api.DeleteNIC(ctx, resourceGroup, name+"-nic"); err != nil {
			a.log.Error(err, "failed to delete NIC", "vm", name)
		}
		if err := a.api.DeletePublicIP(ctx, resourceGroup, name+"-ip"); err != nil {
			a.log.Error(err, "failed to delete public IP", "vm", name)
		}
		count++
	}

	a.log.Info("destroyed deployment", "deployment", deploymentID, "resourceGroup", resourceGroup, "count", count)
	return &types.DestroyOutcome{Success: true, Count: count}, nil
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

// armTagKey rewrites a tag key to satisfy ARM naming rules, which forbid
// the slash used by the shared meridian.io/ prefix.
func armTagKey(key string) string {
	return strings.ReplaceAll(key, "/", ".")
}

func toARMTags(in map[string]string) map[string]*string {
	out := make(map[string]*string, len(in))
	for key, value := range in {
		out[armTagKey(key)] = to.Ptr(value)
	}
	return out
}

func matchesTags(vmTags map[string]*string, selector map[string]string) bool {
	for key, want := range selector {
		got, ok := vmTags[armTagKey(key)]
		if !ok || got == nil || *got != want {
			return false
		}
	}
	return true
}
