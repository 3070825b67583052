package azure

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

type fakeLister struct {
	err error
}

func (f *fakeLister) ListFirstPage(context.Context) error { return f.err }

func withFakeLister(t *testing.T, fake *fakeLister) {
	t.Helper()
	orig := newGroupsLister
	newGroupsLister = func(types.Credentials) (groupsLister, error) { return fake, nil }
	t.Cleanup(func() { newGroupsLister = orig })
}

func validCreds() types.Credentials {
	return types.Credentials{
		TenantID:       "tenant",
		ClientID:       "client",
		ClientSecret:   "secret",
		SubscriptionID: "sub",
	}
}

func TestValidate_Success(t *testing.T) {
	withFakeLister(t, &fakeLister{})

	result, err := Validate(context.Background(), validCreds())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Contains(t, result.Identity, "client")
	assert.Contains(t, result.Identity, "sub")
}

func TestValidate_MissingFieldsIsError(t *testing.T) {
	_, err := Validate(context.Background(), types.Credentials{TenantID: "tenant"})
	require.Error(t, err)
}

func TestValidate_UnauthorizedMapped(t *testing.T) {
	withFakeLister(t, &fakeLister{err: &azcore.ResponseError{StatusCode: 401, ErrorCode: "InvalidAuthenticationToken"}})

	result, err := Validate(context.Background(), validCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "unauthorized")
}

func TestValidate_ForbiddenMapped(t *testing.T) {
	withFakeLister(t, &fakeLister{err: &azcore.ResponseError{StatusCode: 403, ErrorCode: "AuthorizationFailed"}})

	result, err := Validate(context.Background(), validCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "denied")
}

func TestValidate_NetworkFailure(t *testing.T) {
	withFakeLister(t, &fakeLister{err: errors.New("dial tcp: i/o timeout")})

	result, err := Validate(context.Background(), validCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "unable to reach Azure")
}
