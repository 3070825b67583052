// Package azure implements the provider adapter for Azure virtual machines.
//
// The adapter talks to the ARM APIs through a narrow client interface so
// tests can substitute an in-memory fake; RealClient drives the SDK pollers.
package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// API is the subset of the ARM compute/network APIs the adapter uses.
// All long-running operations are awaited to completion by the implementation.
type API interface {
	CreatePublicIP(ctx context.Context, resourceGroup, name string, ip armnetwork.PublicIPAddress) (armnetwork.PublicIPAddress, error)
	CreateNIC(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (armnetwork.Interface, error)
	CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error)

	// ListVMs returns every virtual machine in the resource group; callers
	// filter by tag.
	ListVMs(ctx context.Context, resourceGroup string) ([]*armcompute.VirtualMachine, error)

	DeleteVM(ctx context.Context, resourceGroup, name string) error
	DeleteNIC(ctx context.Context, resourceGroup, name string) error
	DeletePublicIP(ctx context.Context, resourceGroup, name string) error
}
