// Package providers defines the uniform contract every compute provider
// fulfills and the factory that builds concrete adapters from validated
// credentials.
package providers

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/meridian-cp/meridian/internal/providers/aws"
	"github.com/meridian-cp/meridian/internal/providers/azure"
	"github.com/meridian-cp/meridian/internal/providers/gcp"
	"github.com/meridian-cp/meridian/internal/providers/static"
	"github.com/meridian-cp/meridian/internal/providers/types"
)

// Adapter is the provider-independent surface the orchestration layer
// programs against. Every provider implements exactly these three
// operations.
type Adapter interface {
	// Deploy brings up the requested nodes and returns a Result tagged with
	// a fresh deployment identifier. Partial failures surface as
	// *types.DeployError; nothing is rolled back.
	Deploy(ctx context.Context, spec types.NodeSpec) (*types.Result, error)

	// Destroy removes every remote resource belonging to the deployment in
	// the stored result. Resources are rediscovered through the provider's
	// tag index; the result's details scope the search (resource group,
	// zone) to where the deploy actually placed them. Destroying a
	// deployment that no longer exists succeeds with count 0.
	Destroy(ctx context.Context, result *types.Result) (*types.DestroyOutcome, error)

	// Kubeconfig retrieves the cluster's admin kubeconfig, rewritten to be
	// reachable from outside the node.
	Kubeconfig(ctx context.Context, result *types.Result) (string, error)
}

// Validator checks that credentials authenticate against the provider.
// Malformed input is an error; credentials the provider rejects come back
// as a ValidationResult with Valid=false.
type Validator func(ctx context.Context, creds types.Credentials) (types.ValidationResult, error)

// New builds the adapter for the given provider kind.
func New(ctx context.Context, kind types.Kind, creds types.Credentials, region string, log logr.Logger) (Adapter, error) {
	if !creds.HasFieldsFor(kind) {
		return nil, fmt.Errorf("incomplete credentials for provider %s", kind)
	}

	switch kind {
	case types.KindAWS:
		return aws.New(ctx, creds, region, log)
	case types.KindAzure:
		return azure.New(creds, region, log)
	case types.KindGCP:
		return gcp.New(ctx, creds, region, log)
	case types.KindStatic:
		return static.New(creds, log)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownProvider, kind)
	}
}

// ValidatorFor returns the credential validator for the given provider kind.
func ValidatorFor(kind types.Kind) (Validator, error) {
	switch kind {
	case types.KindAWS:
		return aws.Validate, nil
	case types.KindAzure:
		return azure.Validate, nil
	case types.KindGCP:
		return gcp.Validate, nil
	case types.KindStatic:
		return static.Validate, nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownProvider, kind)
	}
}
