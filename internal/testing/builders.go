package testing

import (
	"maps"

	"github.com/google/uuid"

	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/store"
)

// ClusterBuilder provides a fluent interface for constructing test cluster
// records. Each method returns a new builder (immutable) for chaining.
type ClusterBuilder struct {
	cluster store.Cluster
}

// NewClusterBuilder creates a new ClusterBuilder with sensible defaults.
func NewClusterBuilder() *ClusterBuilder {
	return &ClusterBuilder{
		cluster: store.Cluster{
			ID:        uuid.NewString(),
			Name:      "test-cluster",
			Provider:  string(types.KindAWS),
			Region:    "eu-west-1",
			NodeCount: 1,
			Status:    store.StatusPending,
			OrgID:     store.DefaultOrgID,
		},
	}
}

func (b *ClusterBuilder) clone() *ClusterBuilder {
	return &ClusterBuilder{cluster: b.cluster}
}

// WithID sets the cluster id.
func (b *ClusterBuilder) WithID(id string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.ID = id
	return nb
}

// WithName sets the cluster name.
func (b *ClusterBuilder) WithName(name string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Name = name
	return nb
}

// WithProvider sets the provider kind.
func (b *ClusterBuilder) WithProvider(provider string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Provider = provider
	return nb
}

// WithRegion sets the region.
func (b *ClusterBuilder) WithRegion(region string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Region = region
	return nb
}

// WithNodeCount sets the node count.
func (b *ClusterBuilder) WithNodeCount(count int) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.NodeCount = count
	return nb
}

// WithStatus sets the lifecycle status.
func (b *ClusterBuilder) WithStatus(status store.ClusterStatus) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Status = status
	return nb
}

// WithConfig sets the config blob.
func (b *ClusterBuilder) WithConfig(config string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Config = config
	return nb
}

// WithOrg sets the organization.
func (b *ClusterBuilder) WithOrg(orgID string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.OrgID = orgID
	return nb
}

// Build returns the cluster record.
func (b *ClusterBuilder) Build() store.Cluster {
	return b.cluster
}

// NodeSpecBuilder provides a fluent interface for constructing node specs.
type NodeSpecBuilder struct {
	spec types.NodeSpec
}

// NewNodeSpecBuilder creates a new NodeSpecBuilder with sensible defaults.
func NewNodeSpecBuilder() *NodeSpecBuilder {
	return &NodeSpecBuilder{
		spec: types.NodeSpec{
			ClusterName: "test-cluster",
			NodeCount:   1,
			Region:      "eu-west-1",
		},
	}
}

func (b *NodeSpecBuilder) clone() *NodeSpecBuilder {
	nb := &NodeSpecBuilder{spec: b.spec}
	if b.spec.Extras != nil {
		nb.spec.Extras = maps.Clone(b.spec.Extras)
	}
	return nb
}

// WithClusterName sets the cluster name.
func (b *NodeSpecBuilder) WithClusterName(name string) *NodeSpecBuilder {
	nb := b.clone()
	nb.spec.ClusterName = name
	return nb
}

// WithNodeCount sets the node count.
func (b *NodeSpecBuilder) WithNodeCount(count int) *NodeSpecBuilder {
	nb := b.clone()
	nb.spec.NodeCount = count
	return nb
}

// WithMachineType sets the machine type.
func (b *NodeSpecBuilder) WithMachineType(machineType string) *NodeSpecBuilder {
	nb := b.clone()
	nb.spec.MachineType = machineType
	return nb
}

// WithExtra sets one provider-specific setting.
func (b *NodeSpecBuilder) WithExtra(key, value string) *NodeSpecBuilder {
	nb := b.clone()
	if nb.spec.Extras == nil {
		nb.spec.Extras = map[string]string{}
	}
	nb.spec.Extras[key] = value
	return nb
}

// Build returns the node spec.
func (b *NodeSpecBuilder) Build() types.NodeSpec {
	return b.spec
}
