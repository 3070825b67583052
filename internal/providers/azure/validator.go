package azure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

const validateTimeout = 8 * time.Second

// groupsLister proves a token is usable by listing a minimal, low-privilege
// resource collection.
type groupsLister interface {
	ListFirstPage(ctx context.Context) error
}

type realGroupsLister struct {
	client *armresources.ResourceGroupsClient
}

func (l *realGroupsLister) ListFirstPage(ctx context.Context) error {
	pager := l.client.NewListPager(nil)
	if !pager.More() {
		return nil
	}
	_, err := pager.NextPage(ctx)
	return err
}

// newGroupsLister builds the live client. Swapped in tests.
var newGroupsLister = func(creds types.Credentials) (groupsLister, error) {
	cred, err := azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Azure credential: %w", err)
	}
	client, err := armresources.NewResourceGroupsClient(creds.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource groups client: %w", err)
	}
	return &realGroupsLister{client: client}, nil
}

// Validate acquires a token for the service principal and lists the first
// page of resource groups to prove the token is usable against the
// subscription. Expected authentication failures come back as Valid=false.
func Validate(ctx context.Context, creds types.Credentials) (types.ValidationResult, error) {
	if !creds.HasFieldsFor(types.KindAzure) {
		return types.ValidationResult{}, fmt.Errorf("azure credentials need tenantId, clientId, clientSecret and subscriptionId")
	}

	lister, err := newGroupsLister(creds)
	if err != nil {
		return types.ValidationResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	if err := lister.ListFirstPage(ctx); err != nil {
		return types.ValidationResult{Valid: false, Message: describeAuthError(err)}, nil
	}

	return types.ValidationResult{
		Valid:    true,
		Identity: fmt.Sprintf("service principal %s (subscription %s)", creds.ClientID, creds.SubscriptionID),
	}, nil
}

// describeAuthError maps Azure SDK errors to human-readable causes.
func describeAuthError(err error) string {
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return "Azure rejected the service principal credentials (authentication failed)"
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 401:
			return "Azure rejected the token (unauthorized)"
		case 403:
			return "credentials authenticate but are denied access to the subscription"
		default:
			return fmt.Sprintf("Azure rejected the request (%s)", respErr.ErrorCode)
		}
	}

	return fmt.Sprintf("unable to reach Azure: %v", err)
}
