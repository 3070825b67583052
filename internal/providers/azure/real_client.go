package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

// RealClient implements API against the live ARM endpoints.
type RealClient struct {
	vms       *armcompute.VirtualMachinesClient
	nics      *armnetwork.InterfacesClient
	publicIPs *armnetwork.PublicIPAddressesClient
}

// NewRealClient authenticates with a service principal and builds the ARM
// clients for one subscription.
func NewRealClient(creds types.Credentials) (*RealClient, error) {
	cred, err := azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Azure credential: %w", err)
	}
	return newRealClientWithCredential(creds.SubscriptionID, cred)
}

func newRealClientWithCredential(subscriptionID string, cred azcore.TokenCredential) (*RealClient, error) {
	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build VM client: %w", err)
	}
	nics, err := armnetwork.NewInterfacesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build NIC client: %w", err)
	}
	publicIPs, err := armnetwork.NewPublicIPAddressesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build public IP client: %w", err)
	}
	return &RealClient{vms: vms, nics: nics, publicIPs: publicIPs}, nil
}

// CreatePublicIP allocates a public IP address and waits for completion.
func (c *RealClient) CreatePublicIP(ctx context.Context, resourceGroup, name string, ip armnetwork.PublicIPAddress) (armnetwork.PublicIPAddress, error) {
	poller, err := c.publicIPs.BeginCreateOrUpdate(ctx, resourceGroup, name, ip, nil)
	if err != nil {
		return armnetwork.PublicIPAddress{}, fmt.Errorf("failed to create public IP %s: %w", name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armnetwork.PublicIPAddress{}, fmt.Errorf("failed waiting for public IP %s: %w", name, err)
	}
	return resp.PublicIPAddress, nil
}

// CreateNIC creates a network interface and waits for completion.
func (c *RealClient) CreateNIC(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (armnetwork.Interface, error) {
	poller, err := c.nics.BeginCreateOrUpdate(ctx, resourceGroup, name, nic, nil)
	if err != nil {
		return armnetwork.Interface{}, fmt.Errorf("failed to create NIC %s: %w", name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armnetwork.Interface{}, fmt.Errorf("failed waiting for NIC %s: %w", name, err)
	}
	return resp.Interface, nil
}

// CreateVM creates a virtual machine and waits for completion.
func (c *RealClient) CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error) {
	poller, err := c.vms.BeginCreateOrUpdate(ctx, resourceGroup, name, vm, nil)
	if err != nil {
		return armcompute.VirtualMachine{}, fmt.Errorf("failed to create VM %s: %w", name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armcompute.VirtualMachine{}, fmt.Errorf("failed waiting for VM %s: %w", name, err)
	}
	return resp.VirtualMachine, nil
}

// ListVMs returns every VM in the resource group.
func (c *RealClient) ListVMs(ctx context.Context, resourceGroup string) ([]*armcompute.VirtualMachine, error) {
	var vms []*armcompute.VirtualMachine
	pager := c.vms.NewListPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list VMs in %s: %w", resourceGroup, err)
		}
		vms = append(vms, page.Value...)
	}
	return vms, nil
}

// DeleteVM deletes a virtual machine and waits for completion.
func (c *RealClient) DeleteVM(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.vms.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete VM %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for VM %s deletion: %w", name, err)
	}
	return nil
}

// DeleteNIC deletes a network interface and waits for completion.
func (c *RealClient) DeleteNIC(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.nics.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete NIC %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for NIC %s deletion: %w", name, err)
	}
	return nil
}

// DeletePublicIP deletes a public IP address and waits for completion.
func (c *RealClient) DeletePublicIP(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.publicIPs.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete public IP %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for public IP %s deletion: %w", name, err)
	}
	return nil
}
