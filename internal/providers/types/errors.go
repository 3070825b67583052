package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all adapters.
var (
	// ErrUnknownProvider is returned for a provider string outside the
	// closed set of kinds.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNodeNotReady is returned by kubeconfig retrieval when the target
	// node has no externally reachable address yet.
	ErrNodeNotReady = errors.New("node has no reachable address yet")

	// ErrKeyMaterialMissing is returned by kubeconfig retrieval when the
	// private key needed to reach the node was not supplied.
	ErrKeyMaterialMissing = errors.New("ssh private key material missing")
)

// DeployError wraps a node-creation failure inside one deploy attempt.
// Created records how many nodes had already been brought up when the
// failure occurred; those nodes are not rolled back and remain discoverable
// by deployment tag for a later destroy.
type DeployError struct {
	Provider     Kind
	DeploymentID string
	Wanted       int
	Created      int
	Err          error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("%s deploy %s failed (%d/%d nodes created): %v",
		e.Provider, e.DeploymentID, e.Created, e.Wanted, e.Err)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// IsPartial reports whether some but not all requested nodes were created
// before the failure.
func (e *DeployError) IsPartial() bool {
	return e.Created > 0 && e.Created < e.Wanted
}
