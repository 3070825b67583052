// Package testing provides test utilities, builders, and mocks shared by
// unit tests across the module.
//
// This package centralizes common testing patterns to avoid duplication:
//   - ClusterBuilder / NodeSpecBuilder: fluent builders for test records
//   - MockAdapter: shared provider adapter mock
//
// Usage:
//
//	cluster := testing.NewClusterBuilder().
//	    WithProvider("aws").
//	    WithNodeCount(3).
//	    Build()
//
//	adapter := new(testing.MockAdapter)
//	adapter.On("Deploy", mock.Anything, mock.Anything).Return(result, nil)
package testing
