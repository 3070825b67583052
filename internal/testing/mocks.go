package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

// MockAdapter is a mock implementation of the provider adapter surface.
// It can be used across all tests that need to exercise orchestration logic
// without touching a live provider.
type MockAdapter struct {
	mock.Mock
}

// Deploy returns the mocked provisioning result.
func (m *MockAdapter) Deploy(ctx context.Context, spec types.NodeSpec) (*types.Result, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

// Destroy returns the mocked teardown outcome.
func (m *MockAdapter) Destroy(ctx context.Context, result *types.Result) (*types.DestroyOutcome, error) {
	args := m.Called(ctx, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DestroyOutcome), args.Error(1)
}

// Kubeconfig returns the mocked kubeconfig document.
func (m *MockAdapter) Kubeconfig(ctx context.Context, result *types.Result) (string, error) {
	args := m.Called(ctx, result)
	return args.String(0), args.Error(1)
}

// MockValidator is a mock credential validator.
type MockValidator struct {
	mock.Mock
}

// Validate returns the mocked validation result.
func (m *MockValidator) Validate(ctx context.Context, creds types.Credentials) (types.ValidationResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(types.ValidationResult), args.Error(1)
}
