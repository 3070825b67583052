package static

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-cp/meridian/internal/platform/sshexec"
	"github.com/meridian-cp/meridian/internal/providers/types"
)

const (
	validateTimeout = 5 * time.Second
	probeCommand    = "echo meridian"
)

type prober interface {
	Execute(ctx context.Context, command string) (string, error)
}

// newProber builds the live SSH client. Swapped in tests.
var newProber = func(creds types.Credentials) (prober, error) {
	cfg := sshexec.Config{
		Host:        creds.Host,
		User:        creds.User,
		Password:    creds.Password,
		DialTimeout: validateTimeout,
		MaxRetries:  1,
	}
	if creds.SSHPrivateKey != "" {
		cfg.PrivateKey = []byte(creds.SSHPrivateKey)
	}
	return sshexec.NewClient(&cfg)
}

// Validate opens an SSH session to the host and runs a trivial command to
// prove the credentials log in. Expected authentication failures come back
// as Valid=false.
func Validate(ctx context.Context, creds types.Credentials) (types.ValidationResult, error) {
	if !creds.HasFieldsFor(types.KindStatic) {
		return types.ValidationResult{}, fmt.Errorf("static credentials need host, user and a private key or password")
	}

	client, err := newProber(creds)
	if err != nil {
		return types.ValidationResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	output, err := client.Execute(ctx, probeCommand)
	if err != nil {
		return types.ValidationResult{Valid: false, Message: describeAuthError(creds.Host, err)}, nil
	}
	if !strings.Contains(output, "meridian") {
		return types.ValidationResult{Valid: false, Message: fmt.Sprintf("host %s answered the probe with unexpected output", creds.Host)}, nil
	}

	return types.ValidationResult{
		Valid:    true,
		Identity: fmt.Sprintf("%s@%s", creds.User, creds.Host),
	}, nil
}

func describeAuthError(host string, err error) string {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "permission denied") {
		return fmt.Sprintf("host %s rejected the login credentials", host)
	}
	return fmt.Sprintf("unable to reach host %s: %v", host, err)
}
