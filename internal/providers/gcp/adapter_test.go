package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

// fakeAPI implements API in memory, keyed by zone/name.
type fakeAPI struct {
	mu         sync.Mutex
	instances  map[string]*compute.Instance
	failInsert bool
	seq        uint64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{instances: map[string]*compute.Instance{}}
}

func instanceKey(zone, name string) string { return zone + "/" + name }

func (f *fakeAPI) InsertInstance(_ context.Context, zone string, instance *compute.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return errors.New("QUOTA_EXCEEDED")
	}
	f.seq++
	stored := *instance
	stored.Id = f.seq
	stored.Status = "RUNNING"
	stored.NetworkInterfaces = []*compute.NetworkInterface{{
		NetworkIP: fmt.Sprintf("10.0.0.%d", f.seq),
		AccessConfigs: []*compute.AccessConfig{{
			NatIP: fmt.Sprintf("198.51.100.%d", f.seq),
		}},
	}}
	f.instances[instanceKey(zone, instance.Name)] = &stored
	return nil
}

func (f *fakeAPI) GetInstance(_ context.Context, zone, name string) (*compute.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	instance, ok := f.instances[instanceKey(zone, name)]
	if !ok {
		return nil, errors.New("notFound")
	}
	return instance, nil
}

func (f *fakeAPI) ListInstances(_ context.Context, zone, filter string) ([]*compute.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*compute.Instance
	for key, instance := range f.instances {
		if !strings.HasPrefix(key, zone+"/") {
			continue
		}
		if matchesFilter(instance.Labels, filter) {
			out = append(out, instance)
		}
	}
	return out, nil
}

func (f *fakeAPI) DeleteInstance(_ context.Context, zone, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.instances, instanceKey(zone, name))
	return nil
}

// matchesFilter evaluates filters of the form labels.key="value" joined by AND.
func matchesFilter(labels map[string]string, filter string) bool {
	for _, clause := range strings.Split(filter, " AND ") {
		key, quoted, ok := strings.Cut(clause, "=")
		if !ok {
			return false
		}
		key = strings.TrimPrefix(key, "labels.")
		value := strings.Trim(quoted, `"`)
		if labels[key] != value {
			return false
		}
	}
	return true
}

func testAdapter(fake *fakeAPI) *Adapter {
	return &Adapter{
		api:    fake,
		region: "europe-west4",
		log:    logr.Discard(),
	}
}

func TestDeploy_CreatesLabeledInstances(t *testing.T) {
	fake := newFakeAPI()
	adapter := testAdapter(fake)

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "demo", NodeCount: 3})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.DeploymentID)
	require.Len(t, result.Nodes, 3)
	assert.Len(t, fake.instances, 3)

	for _, node := range result.Nodes {
		assert.NotEmpty(t, node.InstanceID)
		assert.NotEmpty(t, node.PublicAddr)
		assert.Equal(t, types.NodeStateRunning, node.State)
	}

	for _, instance := range fake.instances {
		assert.Equal(t, result.DeploymentID, instance.Labels[gcpLabelKey("meridian.io/deployment")])
	}
}

func TestDeploy_GeneratesKeyMaterialWhenMissing(t *testing.T) {
	adapter := testAdapter(newFakeAPI())

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "demo", NodeCount: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Details[types.DetailSSHPrivateKey])
	assert.Equal(t, adminUser, result.Details["sshUser"])
}

func TestDeploy_SuppliedKeySkipsGeneration(t *testing.T) {
	adapter := testAdapter(newFakeAPI())

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{
		ClusterName:  "demo",
		NodeCount:    1,
		SSHPublicKey: "ssh-rsa AAAA... ops@example",
	})
	require.NoError(t, err)
	_, generated := result.Details[types.DetailSSHPrivateKey]
	assert.False(t, generated)
}

func TestDeploy_FailureSurfacesDeployError(t *testing.T) {
	fake := newFakeAPI()
	fake.failInsert = true
	adapter := testAdapter(fake)

	_, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "demo", NodeCount: 2})
	var deployErr *types.DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, types.KindGCP, deployErr.Provider)
	assert.Equal(t, 2, deployErr.Wanted)
	assert.Equal(t, 0, deployErr.Created)
}

func TestDestroy_RemovesOnlyMatchingDeployment(t *testing.T) {
	fake := newFakeAPI()
	adapter := testAdapter(fake)

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "demo", NodeCount: 2})
	require.NoError(t, err)
	_, err = adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "other", NodeCount: 1})
	require.NoError(t, err)

	outcome, err := adapter.Destroy(context.Background(), result)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Count)
	assert.Len(t, fake.instances, 1, "other deployment must be untouched")
}

func TestDestroy_UsesRecordedZone(t *testing.T) {
	fake := newFakeAPI()
	adapter := testAdapter(fake)

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{
		ClusterName: "demo",
		NodeCount:   2,
		Zone:        "europe-west4-c",
	})
	require.NoError(t, err)
	assert.Equal(t, "europe-west4-c", result.Details["zone"])

	// Nothing lives in the region-default zone; teardown still has to find
	// the instances where the deploy placed them.
	outcome, err := adapter.Destroy(context.Background(), result)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Count)
	assert.Empty(t, fake.instances)
}

func TestDestroy_IdempotentOnEmptyDeployment(t *testing.T) {
	adapter := testAdapter(newFakeAPI())

	for range 2 {
		outcome, err := adapter.Destroy(context.Background(), &types.Result{DeploymentID: "gone"})
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, 0, outcome.Count)
	}
}

func TestGCPLabelKey(t *testing.T) {
	assert.Equal(t, "meridian-io_deployment", gcpLabelKey("meridian.io/deployment"))
}

func TestZoneFallsBackToRegion(t *testing.T) {
	adapter := testAdapter(newFakeAPI())
	assert.Equal(t, "europe-west4-a", adapter.zoneFor(types.NodeSpec{}))
	assert.Equal(t, "europe-west4-b", adapter.zoneFor(types.NodeSpec{Zone: "europe-west4-b"}))
}
