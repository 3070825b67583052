// Package gcp implements the provider adapter for Google Compute Engine.
//
// The adapter talks to the Compute Engine API through a narrow client
// interface so tests can substitute an in-memory fake.
package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

// API is the subset of the Compute Engine API the adapter uses.
type API interface {
	InsertInstance(ctx context.Context, zone string, instance *compute.Instance) error
	GetInstance(ctx context.Context, zone, name string) (*compute.Instance, error)
	// ListInstances returns instances in the zone matching the label filter.
	ListInstances(ctx context.Context, zone, filter string) ([]*compute.Instance, error)
	DeleteInstance(ctx context.Context, zone, name string) error
}

// RealClient implements API against the live Compute Engine endpoints.
type RealClient struct {
	service *compute.Service
	project string
}

// NewRealClient authenticates with a service account key.
func NewRealClient(ctx context.Context, creds types.Credentials) (*RealClient, error) {
	service, err := compute.NewService(ctx,
		option.WithCredentialsJSON([]byte(creds.ServiceAccountJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to build compute service: %w", err)
	}
	return &RealClient{service: service, project: creds.ProjectID}, nil
}

// InsertInstance creates an instance. Creation is asynchronous on the
// provider side; the instance surfaces through GetInstance once registered.
func (c *RealClient) InsertInstance(ctx context.Context, zone string, instance *compute.Instance) error {
	_, err := c.service.Instances.Insert(c.project, zone, instance).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to insert instance %s: %w", instance.Name, err)
	}
	return nil
}

// GetInstance fetches one instance by name.
func (c *RealClient) GetInstance(ctx context.Context, zone, name string) (*compute.Instance, error) {
	instance, err := c.service.Instances.Get(c.project, zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", name, err)
	}
	return instance, nil
}

// ListInstances lists instances matching a label filter expression.
func (c *RealClient) ListInstances(ctx context.Context, zone, filter string) ([]*compute.Instance, error) {
	var instances []*compute.Instance
	call := c.service.Instances.List(c.project, zone).Filter(filter).Context(ctx)
	err := call.Pages(ctx, func(page *compute.InstanceList) error {
		instances = append(instances, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

// DeleteInstance deletes one instance by name.
func (c *RealClient) DeleteInstance(ctx context.Context, zone, name string) error {
	_, err := c.service.Instances.Delete(c.project, zone, name).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", name, err)
	}
	return nil
}
