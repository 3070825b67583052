package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/compute/v1"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

const validateTimeout = 8 * time.Second

// serviceAccountKey holds the fields of a service account JSON key the
// validator inspects.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// fetchToken exchanges the key for an access token. Swapped in tests.
var fetchToken = func(ctx context.Context, keyJSON []byte) error {
	conf, err := google.JWTConfigFromJSON(keyJSON, compute.ComputeScope)
	if err != nil {
		return err
	}
	_, err = conf.TokenSource(ctx).Token()
	return err
}

// Validate parses the service account key, checks it belongs to the declared
// project and exchanges it for an access token to prove the key is live.
// Expected authentication failures come back as Valid=false.
func Validate(ctx context.Context, creds types.Credentials) (types.ValidationResult, error) {
	if !creds.HasFieldsFor(types.KindGCP) {
		return types.ValidationResult{}, fmt.Errorf("gcp credentials need serviceAccountJson and projectId")
	}

	var key serviceAccountKey
	if err := json.Unmarshal([]byte(creds.ServiceAccountJSON), &key); err != nil {
		return types.ValidationResult{Valid: false, Message: "service account key is not valid JSON"}, nil
	}
	if key.Type != "service_account" {
		return types.ValidationResult{Valid: false, Message: fmt.Sprintf("key type %q is not a service account key", key.Type)}, nil
	}
	if key.ProjectID != "" && key.ProjectID != creds.ProjectID {
		return types.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("key belongs to project %s, not %s", key.ProjectID, creds.ProjectID),
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	if err := fetchToken(ctx, []byte(creds.ServiceAccountJSON)); err != nil {
		return types.ValidationResult{Valid: false, Message: describeAuthError(err)}, nil
	}

	return types.ValidationResult{
		Valid:    true,
		Identity: key.ClientEmail,
	}, nil
}

// describeAuthError maps token exchange errors to human-readable causes.
func describeAuthError(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode != "" {
			return fmt.Sprintf("Google rejected the service account key (%s)", retrieveErr.ErrorCode)
		}
		return "Google rejected the service account key"
	}
	return fmt.Sprintf("unable to reach Google Cloud: %v", err)
}
