// Package provisioner orchestrates the asynchronous cluster lifecycle: it
// turns pending cluster records into running deployments, tears deployments
// down, and retrieves kubeconfigs from active clusters.
//
// Provision is fire and forget. The caller inserts a pending record and
// returns immediately; a background goroutine settles the record to active
// or error. Sensitive deployment details are encrypted with the vault's
// cipher before any result reaches storage.
package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/meridian-cp/meridian/internal/providers"
	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/store"
	"github.com/meridian-cp/meridian/internal/vault"
)

// ErrClusterNotReady is returned when an operation needs an active cluster
// but the record is still pending or settled in error.
var ErrClusterNotReady = errors.New("cluster is not active")

// AdapterFactory builds a provider adapter from resolved credentials.
// Swapped in tests to avoid live provider calls.
type AdapterFactory func(ctx context.Context, kind types.Kind, creds types.Credentials, region string, log logr.Logger) (providers.Adapter, error)

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithAdapterFactory overrides how adapters are built.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(p *Provisioner) { p.newAdapter = f }
}

// Provisioner drives deploys and teardowns against the provider adapters.
type Provisioner struct {
	store      store.Store
	vault      *vault.Vault
	newAdapter AdapterFactory
	log        logr.Logger
	wg         sync.WaitGroup
}

// New creates a Provisioner.
func New(s store.Store, v *vault.Vault, log logr.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		store: s,
		vault: v,
		newAdapter: func(ctx context.Context, kind types.Kind, creds types.Credentials, region string, log logr.Logger) (providers.Adapter, error) {
			return providers.New(ctx, kind, creds, region, log)
		},
		log: log.WithName("provisioner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision starts the asynchronous provisioning attempt for an already
// persisted pending cluster record and returns immediately. The attempt
// runs detached from the caller's context; cancelling the caller does not
// abort an in-flight deploy.
func (p *Provisioner) Provision(cluster store.Cluster, spec types.NodeSpec) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(context.Background(), cluster, spec)
	}()
}

// Wait blocks until every in-flight provisioning attempt has settled.
func (p *Provisioner) Wait() { p.wg.Wait() }

func (p *Provisioner) run(ctx context.Context, cluster store.Cluster, spec types.NodeSpec) {
	log := p.log.WithValues("cluster", cluster.ID, "provider", cluster.Provider)
	started := time.Now()

	result, err := p.deploy(ctx, cluster, spec, log)
	provisionDuration.WithLabelValues(cluster.Provider).Observe(time.Since(started).Seconds())
	if err != nil {
		provisionTotal.WithLabelValues(cluster.Provider, "error").Inc()
		log.Error(err, "provisioning failed")
		p.settle(ctx, cluster.ID, store.StatusError, errorConfig(err), log)
		return
	}

	config, err := json.Marshal(result)
	if err != nil {
		provisionTotal.WithLabelValues(cluster.Provider, "error").Inc()
		log.Error(err, "failed to serialize provisioning result")
		p.settle(ctx, cluster.ID, store.StatusError, errorConfig(err), log)
		return
	}

	provisionTotal.WithLabelValues(cluster.Provider, "success").Inc()
	log.Info("provisioning succeeded", "deployment", result.DeploymentID, "nodes", len(result.Nodes))
	p.settle(ctx, cluster.ID, store.StatusActive, string(config), log)
}

func (p *Provisioner) deploy(ctx context.Context, cluster store.Cluster, spec types.NodeSpec, log logr.Logger) (*types.Result, error) {
	kind, err := types.ParseKind(cluster.Provider)
	if err != nil {
		return nil, err
	}

	creds, source, err := p.vault.Resolve(ctx, cluster.OrgID, kind)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("resolved credentials", "source", source)

	adapter, err := p.newAdapter(ctx, kind, creds, cluster.Region, log)
	if err != nil {
		return nil, err
	}

	result, err := adapter.Deploy(ctx, spec)
	if err != nil {
		return nil, err
	}

	if err := p.encryptSensitiveDetails(result); err != nil {
		return nil, err
	}
	return result, nil
}

// settle writes the terminal status. A failed write is logged but cannot be
// propagated anywhere; the record stays pending for the operator to inspect.
func (p *Provisioner) settle(ctx context.Context, id string, status store.ClusterStatus, config string, log logr.Logger) {
	if err := p.store.UpdateClusterStatus(ctx, id, status, config); err != nil {
		log.Error(err, "failed to persist cluster status", "status", status)
	}
}

// encryptSensitiveDetails seals key material in the result in place so it
// never reaches storage as plaintext.
func (p *Provisioner) encryptSensitiveDetails(result *types.Result) error {
	for _, key := range types.SensitiveDetailKeys() {
		plaintext, ok := result.Details[key]
		if !ok || plaintext == "" || result.DetailEncrypted(key) {
			continue
		}
		ciphertext, err := p.vault.Cipher().Encrypt([]byte(plaintext))
		if err != nil {
			return fmt.Errorf("failed to encrypt detail %s: %w", key, err)
		}
		result.Details[key] = ciphertext
		result.EncryptedDetails = append(result.EncryptedDetails, key)
	}
	return nil
}

// decryptedClone returns a deep copy of the result with sensitive details
// decrypted. The stored representation is never mutated.
func (p *Provisioner) decryptedClone(result *types.Result) (*types.Result, error) {
	clone := result.Clone()
	for _, key := range clone.EncryptedDetails {
		ciphertext, ok := clone.Details[key]
		if !ok {
			continue
		}
		plaintext, err := p.vault.Cipher().Decrypt(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt detail %s: %w", key, err)
		}
		clone.Details[key] = string(plaintext)
	}
	clone.EncryptedDetails = nil
	return clone, nil
}

// Kubeconfig retrieves the admin kubeconfig of an active cluster.
func (p *Provisioner) Kubeconfig(ctx context.Context, id string) (string, error) {
	cluster, err := p.store.GetCluster(ctx, id)
	if err != nil {
		return "", err
	}
	if cluster.Status != store.StatusActive {
		return "", fmt.Errorf("cluster %s is %s: %w", id, cluster.Status, ErrClusterNotReady)
	}

	result, err := resultFromConfig(cluster)
	if err != nil {
		return "", err
	}

	kind, err := types.ParseKind(cluster.Provider)
	if err != nil {
		return "", err
	}
	creds, _, err := p.vault.Resolve(ctx, cluster.OrgID, kind)
	if err != nil {
		return "", err
	}
	adapter, err := p.newAdapter(ctx, kind, creds, cluster.Region, p.log)
	if err != nil {
		return "", err
	}

	decrypted, err := p.decryptedClone(result)
	if err != nil {
		return "", err
	}
	return adapter.Kubeconfig(ctx, decrypted)
}

// Destroy tears down a cluster's remote deployment and removes the local
// record. The record is removed even when remote teardown fails, so a
// cluster never lingers locally; the remote failure is still reported.
func (p *Provisioner) Destroy(ctx context.Context, id string) (*types.DestroyOutcome, error) {
	cluster, err := p.store.GetCluster(ctx, id)
	if err != nil {
		return nil, err
	}
	log := p.log.WithValues("cluster", id, "provider", cluster.Provider)

	result, err := resultFromConfig(cluster)
	if err != nil || result == nil || result.DeploymentID == "" {
		// Nothing was ever deployed (or the blob is unreadable); local
		// cleanup is all there is to do.
		if err != nil {
			log.Error(err, "config blob unreadable, removing record only")
		}
		if delErr := p.store.DeleteCluster(ctx, id); delErr != nil {
			return nil, delErr
		}
		return &types.DestroyOutcome{Success: true, Count: 0}, nil
	}

	outcome, remoteErr := p.destroyRemote(ctx, cluster, result, log)
	if remoteErr != nil {
		destroyTotal.WithLabelValues(cluster.Provider, "error").Inc()
	} else {
		destroyTotal.WithLabelValues(cluster.Provider, "success").Inc()
	}

	if err := p.store.DeleteCluster(ctx, id); err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return nil, fmt.Errorf("remote teardown failed, local record removed: %w", remoteErr)
	}

	log.Info("cluster destroyed", "deployment", result.DeploymentID, "resources", outcome.Count)
	return outcome, nil
}

// destroyRemote rebuilds the adapter and hands it the stored result, so
// rediscovery is scoped to where the deploy actually placed resources.
func (p *Provisioner) destroyRemote(ctx context.Context, cluster *store.Cluster, result *types.Result, log logr.Logger) (*types.DestroyOutcome, error) {
	kind, err := types.ParseKind(cluster.Provider)
	if err != nil {
		return nil, err
	}
	creds, _, err := p.vault.Resolve(ctx, cluster.OrgID, kind)
	if err != nil {
		return nil, err
	}
	adapter, err := p.newAdapter(ctx, kind, creds, cluster.Region, log)
	if err != nil {
		return nil, err
	}
	return adapter.Destroy(ctx, result)
}

// resultFromConfig parses the provisioning result out of the cluster's
// config blob. An empty blob yields a nil result, not an error.
func resultFromConfig(cluster *store.Cluster) (*types.Result, error) {
	if cluster.Config == "" {
		return nil, nil
	}
	var result types.Result
	if err := json.Unmarshal([]byte(cluster.Config), &result); err != nil {
		return nil, fmt.Errorf("cluster %s config blob is corrupt: %w", cluster.ID, err)
	}
	return &result, nil
}

func errorConfig(err error) string {
	blob, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error": "provisioning failed"}`
	}
	return string(blob)
}
