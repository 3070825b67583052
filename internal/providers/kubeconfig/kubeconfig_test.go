package kubeconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

type fakeExecutor struct {
	output string
	err    error
	cmd    string
}

func (f *fakeExecutor) Execute(_ context.Context, command string) (string, error) {
	f.cmd = command
	return f.output, f.err
}

func withFakeExecutor(t *testing.T, exec *fakeExecutor) {
	t.Helper()
	orig := newExecutor
	newExecutor = func(string, Auth) (Executor, error) { return exec, nil }
	t.Cleanup(func() { newExecutor = orig })
}

func testResult(publicAddr string) *types.Result {
	return &types.Result{
		Success:      true,
		DeploymentID: "dep-1",
		Nodes: []types.Node{
			{InstanceID: "i-1", Name: "demo-node-1", PublicAddr: publicAddr, State: types.NodeStateRunning},
		},
	}
}

const sampleConfig = `apiVersion: v1
clusters:
- cluster:
    server: https://127.0.0.1:6443
  name: default
`

func TestFetch_RewritesLoopback(t *testing.T) {
	exec := &fakeExecutor{output: sampleConfig}
	withFakeExecutor(t, exec)

	got, err := Fetch(context.Background(), testResult("198.51.100.7"), Auth{User: "root", Password: "pw"})
	require.NoError(t, err)

	assert.Contains(t, got, "https://198.51.100.7:6443")
	assert.NotContains(t, got, "127.0.0.1")
	assert.Equal(t, "sudo cat /etc/rancher/k3s/k3s.yaml", exec.cmd)
}

func TestFetch_NodeNotReady(t *testing.T) {
	withFakeExecutor(t, &fakeExecutor{output: sampleConfig})

	_, err := Fetch(context.Background(), testResult(""), Auth{User: "root", Password: "pw"})
	assert.ErrorIs(t, err, types.ErrNodeNotReady)
}

func TestFetch_NoNodes(t *testing.T) {
	_, err := Fetch(context.Background(), &types.Result{}, Auth{User: "root", Password: "pw"})
	assert.ErrorIs(t, err, types.ErrNodeNotReady)
}

func TestFetch_KeyMaterialMissing(t *testing.T) {
	_, err := Fetch(context.Background(), testResult("198.51.100.7"), Auth{User: "root"})
	assert.ErrorIs(t, err, types.ErrKeyMaterialMissing)
}

func TestFetch_ExecError(t *testing.T) {
	boom := errors.New("connection refused")
	withFakeExecutor(t, &fakeExecutor{err: boom})

	_, err := Fetch(context.Background(), testResult("198.51.100.7"), Auth{User: "root", Password: "pw"})
	assert.ErrorIs(t, err, boom)
}

func TestRewriteLoopback(t *testing.T) {
	in := "server: https://localhost:6443\nserver: https://127.0.0.1:6443\n"
	out := RewriteLoopback(in, "203.0.113.4")
	assert.Equal(t, "server: https://203.0.113.4:6443\nserver: https://203.0.113.4:6443\n", out)
}
