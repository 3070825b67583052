package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/util/tags"
)

// fakeEC2 implements API in memory, tracking created instances and tags.
type fakeEC2 struct {
	mu        sync.Mutex
	seq       atomic.Int64
	instances map[string][]ec2types.Tag // instanceID -> tags
	failAfter int                       // fail RunInstances after this many successes (0 = never)

	terminated      []string
	deletedKeyPairs []string
	importedKeys    int
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{instances: map[string][]ec2types.Tag{}}
}

func (f *fakeEC2) RunInstances(_ context.Context, params *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAfter > 0 && len(f.instances) >= f.failAfter {
		return nil, errors.New("InsufficientInstanceCapacity")
	}

	id := fmt.Sprintf("i-%06d", f.seq.Add(1))
	var instanceTags []ec2types.Tag
	for _, spec := range params.TagSpecifications {
		if spec.ResourceType == ec2types.ResourceTypeInstance {
			instanceTags = spec.Tags
		}
	}
	f.instances[id] = instanceTags

	return &ec2.RunInstancesOutput{
		Instances: []ec2types.Instance{{
			InstanceId:       awssdk.String(id),
			PrivateIpAddress: awssdk.String("10.0.0.1"),
		}},
	}, nil
}

func (f *fakeEC2) DescribeInstances(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var instances []ec2types.Instance
	for id, instanceTags := range f.instances {
		if matchesFilters(instanceTags, params.Filters) {
			instances = append(instances, ec2types.Instance{InstanceId: awssdk.String(id)})
		}
	}

	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: instances}},
	}, nil
}

func matchesFilters(instanceTags []ec2types.Tag, filters []ec2types.Filter) bool {
	for _, filter := range filters {
		name := awssdk.ToString(filter.Name)
		if len(name) < 4 || name[:4] != "tag:" {
			continue
		}
		key := name[4:]
		found := false
		for _, tag := range instanceTags {
			if awssdk.ToString(tag.Key) == key && awssdk.ToString(tag.Value) == filter.Values[0] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeEC2) TerminateInstances(_ context.Context, params *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range params.InstanceIds {
		delete(f.instances, id)
		f.terminated = append(f.terminated, id)
	}
	return &ec2.TerminateInstancesOutput{}, nil
}

func (f *fakeEC2) ImportKeyPair(_ context.Context, _ *ec2.ImportKeyPairInput, _ ...func(*ec2.Options)) (*ec2.ImportKeyPairOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.importedKeys++
	return &ec2.ImportKeyPairOutput{}, nil
}

func (f *fakeEC2) DeleteKeyPair(_ context.Context, params *ec2.DeleteKeyPairInput, _ ...func(*ec2.Options)) (*ec2.DeleteKeyPairOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedKeyPairs = append(f.deletedKeyPairs, awssdk.ToString(params.KeyName))
	return &ec2.DeleteKeyPairOutput{}, nil
}

func testAdapter(fake *fakeEC2) *Adapter {
	return &Adapter{ec2: fake, log: logr.Discard()}
}

func TestDeploy_CreatesRequestedNodes(t *testing.T) {
	fake := newFakeEC2()
	adapter := testAdapter(fake)

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{
		ClusterName: "demo",
		NodeCount:   3,
		Region:      "eu-central-1",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.DeploymentID)
	require.Len(t, result.Nodes, 3)
	assert.Equal(t, 1, fake.importedKeys)
	assert.NotEmpty(t, result.Details[types.DetailSSHPrivateKey], "generated key must be surfaced for redaction")

	// Every created instance carries the deployment tag.
	for _, instanceTags := range fake.instances {
		var deployment string
		for _, tag := range instanceTags {
			if awssdk.ToString(tag.Key) == tags.KeyDeployment {
				deployment = awssdk.ToString(tag.Value)
			}
		}
		assert.Equal(t, result.DeploymentID, deployment)
	}
}

func TestDeploy_UsesSuppliedPublicKey(t *testing.T) {
	fake := newFakeEC2()
	adapter := testAdapter(fake)

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{
		ClusterName:  "demo",
		NodeCount:    1,
		SSHPublicKey: "ssh-rsa AAAA... ops@example",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Details[types.DetailSSHPrivateKey],
		"no key is generated when the caller supplies one")
}

func TestDeploy_PartialFailureSurfacesDeployError(t *testing.T) {
	fake := newFakeEC2()
	fake.failAfter = 2
	adapter := testAdapter(fake)

	_, err := adapter.Deploy(context.Background(), types.NodeSpec{
		ClusterName: "demo",
		NodeCount:   5,
	})
	require.Error(t, err)

	var deployErr *types.DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, types.KindAWS, deployErr.Provider)
	assert.Equal(t, 5, deployErr.Wanted)
	assert.Less(t, deployErr.Created, 5)
	// No rollback: whatever was created stays for destroy to sweep.
	assert.NotEmpty(t, fake.instances)
}

func TestDestroy_TerminatesTaggedInstances(t *testing.T) {
	fake := newFakeEC2()
	adapter := testAdapter(fake)

	result, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "demo", NodeCount: 2})
	require.NoError(t, err)

	outcome, err := adapter.Destroy(context.Background(), result)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Count)
	assert.Contains(t, fake.deletedKeyPairs, keyPairName(result.DeploymentID))
}

func TestDestroy_IdempotentOnEmptyDeployment(t *testing.T) {
	adapter := testAdapter(newFakeEC2())

	for range 2 {
		outcome, err := adapter.Destroy(context.Background(), &types.Result{DeploymentID: "dep-gone"})
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, 0, outcome.Count)
	}
}

func TestDestroy_OnlyMatchingDeployment(t *testing.T) {
	fake := newFakeEC2()
	adapter := testAdapter(fake)

	first, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "one", NodeCount: 1})
	require.NoError(t, err)
	second, err := adapter.Deploy(context.Background(), types.NodeSpec{ClusterName: "two", NodeCount: 1})
	require.NoError(t, err)

	outcome, err := adapter.Destroy(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Count)

	remaining, err := adapter.Destroy(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining.Count)
}

func TestKubeconfig_NodeNotReady(t *testing.T) {
	adapter := testAdapter(newFakeEC2())

	_, err := adapter.Kubeconfig(context.Background(), &types.Result{
		DeploymentID: "dep-1",
		Nodes:        []types.Node{{InstanceID: "i-1", Name: "demo-node-1"}},
		Details:      map[string]string{types.DetailSSHPrivateKey: "fake-key"},
	})
	assert.ErrorIs(t, err, types.ErrNodeNotReady)
}

func TestKubeconfig_KeyMaterialMissing(t *testing.T) {
	adapter := testAdapter(newFakeEC2())

	_, err := adapter.Kubeconfig(context.Background(), &types.Result{
		DeploymentID: "dep-1",
		Nodes:        []types.Node{{InstanceID: "i-1", PublicAddr: "198.51.100.1"}},
	})
	assert.ErrorIs(t, err, types.ErrKeyMaterialMissing)
}
