// Package kubeconfig retrieves a cluster's generated kubeconfig from a
// provisioned node over SSH and rewrites loopback addresses so the returned
// document is usable from outside the node.
package kubeconfig

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-cp/meridian/internal/platform/sshexec"
	"github.com/meridian-cp/meridian/internal/providers/types"
)

// k3s writes its admin kubeconfig here on every node.
const configPath = "/etc/rancher/k3s/k3s.yaml"

// Auth carries the SSH credentials used to reach the node.
type Auth struct {
	User       string
	PrivateKey []byte
	Password   string
}

// Executor runs a command on a remote node.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// newExecutor builds the remote session. Swapped in tests.
var newExecutor = func(host string, auth Auth) (Executor, error) {
	return sshexec.NewClient(&sshexec.Config{
		Host:       host,
		User:       auth.User,
		PrivateKey: auth.PrivateKey,
		Password:   auth.Password,
		MaxRetries: 10,
		RetryDelay: 3 * time.Second,
	})
}

// Fetch reads the kubeconfig from a representative node of the given
// provisioning result. It fails with types.ErrNodeNotReady when the node has
// no externally reachable address yet (async address assignment still
// pending) and types.ErrKeyMaterialMissing when no way to authenticate was
// supplied.
func Fetch(ctx context.Context, result *types.Result, auth Auth) (string, error) {
	if result == nil || len(result.Nodes) == 0 {
		return "", fmt.Errorf("provisioning result has no nodes: %w", types.ErrNodeNotReady)
	}
	if len(auth.PrivateKey) == 0 && auth.Password == "" {
		return "", types.ErrKeyMaterialMissing
	}

	node := result.Nodes[0]
	if node.PublicAddr == "" {
		return "", fmt.Errorf("node %s: %w", node.Name, types.ErrNodeNotReady)
	}

	exec, err := newExecutor(node.PublicAddr, auth)
	if err != nil {
		return "", fmt.Errorf("failed to build SSH session for %s: %w", node.PublicAddr, err)
	}

	raw, err := exec.Execute(ctx, "sudo cat "+configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read kubeconfig from %s: %w", node.PublicAddr, err)
	}

	return RewriteLoopback(raw, node.PublicAddr), nil
}

// RewriteLoopback replaces loopback server addresses in a kubeconfig document
// with the node's externally reachable address. The document is otherwise
// passed through verbatim.
func RewriteLoopback(config, addr string) string {
	out := strings.ReplaceAll(config, "127.0.0.1", addr)
	return strings.ReplaceAll(out, "localhost", addr)
}
