package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

const validateTimeout = 5 * time.Second

// STSAPI is the subset of the STS API used for credential validation.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// newSTSClient builds the live client. Swapped in tests.
var newSTSClient = func(ctx context.Context, creds types.Credentials) (STSAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
		awsconfig.WithRegion("us-east-1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sts.NewFromConfig(cfg), nil
}

// Validate performs a read-only sts:GetCallerIdentity call to confirm the
// credential set authenticates. Expected authentication failures come back
// as Valid=false with a readable message; only missing required fields
// produce an error.
func Validate(ctx context.Context, creds types.Credentials) (types.ValidationResult, error) {
	if !creds.HasFieldsFor(types.KindAWS) {
		return types.ValidationResult{}, fmt.Errorf("aws credentials need accessKeyId and secretAccessKey")
	}

	client, err := newSTSClient(ctx, creds)
	if err != nil {
		return types.ValidationResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return types.ValidationResult{Valid: false, Message: describeAuthError(err)}, nil
	}

	return types.ValidationResult{
		Valid:    true,
		Identity: aws.ToString(out.Arn),
	}, nil
}

// describeAuthError maps AWS API error codes to human-readable causes
// instead of leaking raw SDK errors to the operator.
func describeAuthError(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidClientTokenId", "UnrecognizedClientException":
			return "access key id is not recognized by AWS"
		case "SignatureDoesNotMatch":
			return "secret access key does not match the access key id (bad signature)"
		case "RequestExpired", "RequestTimeTooSkewed":
			return "request expired; check for clock skew on this host"
		case "AccessDenied", "AccessDeniedException":
			return "credentials authenticate but are denied sts:GetCallerIdentity"
		default:
			return fmt.Sprintf("AWS rejected the credentials (%s)", apiErr.ErrorCode())
		}
	}
	return fmt.Sprintf("unable to reach AWS: %v", err)
}
