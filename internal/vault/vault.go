// Package vault manages provider credentials: operator-injected environment
// credentials, encrypted storage of user-supplied ones, live validation
// before anything is persisted, and resolution at provisioning time.
//
// Resolution order is fixed: environment credentials always win over stored
// ones, and environment credentials cannot be modified through the vault.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/meridian-cp/meridian/internal/crypto/secrets"
	"github.com/meridian-cp/meridian/internal/providers"
	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/store"
	"github.com/meridian-cp/meridian/internal/util/naming"
)

// Source identifies where resolved credentials came from.
type Source string

const (
	// SourceEnv marks operator-injected environment credentials.
	SourceEnv Source = "env"
	// SourceStored marks user-supplied credentials held encrypted in the store.
	SourceStored Source = "stored"
)

// ErrNotFound is returned when no credentials exist for a provider.
var ErrNotFound = errors.New("no credentials connected")

// ErrImmutableSource is returned on attempts to delete environment
// credentials, which only the operator controls.
var ErrImmutableSource = errors.New("environment credentials cannot be modified")

// CredentialError is returned when a provider rejects submitted credentials
// during the pre-save validation round trip.
type CredentialError struct {
	Provider types.Kind
	Message  string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credentials rejected: %s", e.Provider, e.Message)
}

// Status describes the connection state of one provider's credentials
// without ever touching plaintext secret material.
type Status struct {
	Provider    types.Kind `json:"provider"`
	Connected   bool       `json:"connected"`
	Source      Source     `json:"source,omitempty"`
	Identity    string     `json:"identity,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// Vault coordinates credential resolution, validation and encrypted storage.
type Vault struct {
	store  store.Store
	cipher *secrets.Cipher
	env    map[types.Kind]types.Credentials
	log    logr.Logger

	// validatorFor is swapped in tests to avoid live provider calls.
	validatorFor func(types.Kind) (providers.Validator, error)
}

// New creates a Vault. env holds operator-injected credentials keyed by
// provider kind; entries with missing required fields are ignored.
func New(s store.Store, cipher *secrets.Cipher, env map[types.Kind]types.Credentials, log logr.Logger) *Vault {
	usable := make(map[types.Kind]types.Credentials, len(env))
	for kind, creds := range env {
		if creds.HasFieldsFor(kind) {
			usable[kind] = creds
		}
	}
	return &Vault{
		store:        s,
		cipher:       cipher,
		env:          usable,
		log:          log.WithName("vault"),
		validatorFor: providers.ValidatorFor,
	}
}

// Cipher exposes the vault's cipher so the provisioner can protect sensitive
// deployment details with the same key.
func (v *Vault) Cipher() *secrets.Cipher { return v.cipher }

// Resolve returns usable plaintext credentials for the provider, preferring
// environment credentials over stored ones. Fails with ErrNotFound when
// neither source has them.
func (v *Vault) Resolve(ctx context.Context, orgID string, kind types.Kind) (types.Credentials, Source, error) {
	if creds, ok := v.env[kind]; ok {
		return creds, SourceEnv, nil
	}

	row, err := v.store.GetCredential(ctx, orgID, string(kind))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return types.Credentials{}, "", fmt.Errorf("%s: %w", kind, ErrNotFound)
		}
		return types.Credentials{}, "", err
	}

	plaintext, err := v.cipher.Decrypt(row.Ciphertext)
	if err != nil {
		return types.Credentials{}, "", fmt.Errorf("failed to decrypt stored %s credentials: %w", kind, err)
	}

	var creds types.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return types.Credentials{}, "", fmt.Errorf("stored %s credentials are corrupt: %w", kind, err)
	}
	return creds, SourceStored, nil
}

// Save validates the credentials against the live provider and, only on
// success, encrypts and persists them. Rejected credentials surface as a
// *CredentialError and leave the store untouched. An empty displayName is
// replaced with one derived from the provider and validated identity.
func (v *Vault) Save(ctx context.Context, orgID string, kind types.Kind, creds types.Credentials, displayName string) (types.ValidationResult, error) {
	validate, err := v.validatorFor(kind)
	if err != nil {
		return types.ValidationResult{}, err
	}

	result, err := validate(ctx, creds)
	if err != nil {
		return types.ValidationResult{}, fmt.Errorf("failed to validate %s credentials: %w", kind, err)
	}
	if !result.Valid {
		return result, &CredentialError{Provider: kind, Message: result.Message}
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return result, fmt.Errorf("failed to serialize %s credentials: %w", kind, err)
	}
	ciphertext, err := v.cipher.Encrypt(plaintext)
	if err != nil {
		return result, fmt.Errorf("failed to encrypt %s credentials: %w", kind, err)
	}

	if displayName == "" {
		displayName = naming.CredentialDisplayName(string(kind), result.Identity)
	}
	row := &store.Credential{
		OrgID:       orgID,
		Provider:    string(kind),
		Ciphertext:  ciphertext,
		Identity:    result.Identity,
		DisplayName: displayName,
	}
	if err := v.store.SaveCredential(ctx, row); err != nil {
		return result, err
	}

	v.log.Info("credentials connected", "provider", kind, "identity", result.Identity)
	return result, nil
}

// StatusFor reports the connection state for one provider. A disconnected
// provider is not an error. Stored rows are described from their metadata
// columns; the ciphertext is never decrypted here.
func (v *Vault) StatusFor(ctx context.Context, orgID string, kind types.Kind) (Status, error) {
	if _, ok := v.env[kind]; ok {
		return Status{
			Provider:    kind,
			Connected:   true,
			Source:      SourceEnv,
			DisplayName: naming.CredentialDisplayName(string(kind), "environment"),
		}, nil
	}

	row, err := v.store.GetCredential(ctx, orgID, string(kind))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return Status{Provider: kind, Connected: false}, nil
		}
		return Status{}, err
	}

	return Status{
		Provider:    kind,
		Connected:   true,
		Source:      SourceStored,
		Identity:    row.Identity,
		DisplayName: row.DisplayName,
	}, nil
}

// StatusAll reports the connection state of every supported provider.
func (v *Vault) StatusAll(ctx context.Context, orgID string) ([]Status, error) {
	out := make([]Status, 0, len(types.Kinds()))
	for _, kind := range types.Kinds() {
		s, err := v.StatusFor(ctx, orgID, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Delete disconnects stored credentials for a provider. Environment
// credentials cannot be deleted; missing credentials fail with ErrNotFound.
func (v *Vault) Delete(ctx context.Context, orgID string, kind types.Kind) error {
	if _, ok := v.env[kind]; ok {
		return fmt.Errorf("%s: %w", kind, ErrImmutableSource)
	}

	err := v.store.DeleteCredential(ctx, orgID, string(kind))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%s: %w", kind, ErrNotFound)
		}
		return err
	}

	v.log.Info("credentials disconnected", "provider", kind)
	return nil
}
