package gcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

const testKeyJSON = `{
  "type": "service_account",
  "project_id": "acme-prod",
  "client_email": "provisioner@acme-prod.iam.gserviceaccount.com"
}`

func withFakeToken(t *testing.T, err error) {
	t.Helper()
	orig := fetchToken
	fetchToken = func(context.Context, []byte) error { return err }
	t.Cleanup(func() { fetchToken = orig })
}

func gcpCreds() types.Credentials {
	return types.Credentials{ServiceAccountJSON: testKeyJSON, ProjectID: "acme-prod"}
}

func TestValidate_Success(t *testing.T) {
	withFakeToken(t, nil)

	result, err := Validate(context.Background(), gcpCreds())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "provisioner@acme-prod.iam.gserviceaccount.com", result.Identity)
}

func TestValidate_MissingFieldsIsError(t *testing.T) {
	_, err := Validate(context.Background(), types.Credentials{ProjectID: "acme-prod"})
	require.Error(t, err)
}

func TestValidate_MalformedKeyRejected(t *testing.T) {
	result, err := Validate(context.Background(), types.Credentials{
		ServiceAccountJSON: "not json",
		ProjectID:          "acme-prod",
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "not valid JSON")
}

func TestValidate_WrongKeyTypeRejected(t *testing.T) {
	result, err := Validate(context.Background(), types.Credentials{
		ServiceAccountJSON: `{"type": "authorized_user"}`,
		ProjectID:          "acme-prod",
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "authorized_user")
}

func TestValidate_ProjectMismatchRejected(t *testing.T) {
	creds := gcpCreds()
	creds.ProjectID = "other-project"

	result, err := Validate(context.Background(), creds)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "acme-prod")
	assert.Contains(t, result.Message, "other-project")
}

func TestValidate_RevokedKeyMapped(t *testing.T) {
	withFakeToken(t, &oauth2.RetrieveError{ErrorCode: "invalid_grant"})

	result, err := Validate(context.Background(), gcpCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "invalid_grant")
}

func TestValidate_NetworkFailure(t *testing.T) {
	withFakeToken(t, errors.New("dial tcp: i/o timeout"))

	result, err := Validate(context.Background(), gcpCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "unable to reach Google Cloud")
}
