package testing

import (
	"context"
	"testing"
	"time"

	"github.com/meridian-cp/meridian/internal/store"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WaitForStatus polls the store until the cluster leaves the pending state
// and returns the settled record. Fails the test on timeout.
func WaitForStatus(t *testing.T, s store.Store, id string, timeout time.Duration) *store.Cluster {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		cluster, err := s.GetCluster(context.Background(), id)
		if err == nil && cluster.Status != store.StatusPending {
			return cluster
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("cluster %s did not settle within %s", id, timeout)
	return nil
}
