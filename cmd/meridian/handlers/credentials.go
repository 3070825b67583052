package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/store"
	"github.com/meridian-cp/meridian/internal/vault"
)

// CredentialsStatus handles the credentials status command.
//
// It prints the connection state of every supported provider without
// touching any secret material.
func CredentialsStatus(ctx context.Context, configPath string) error {
	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	statuses, err := app.Vault.StatusAll(ctx, store.DefaultOrgID)
	if err != nil {
		return err
	}

	for _, s := range statuses {
		if !s.Connected {
			fmt.Printf("%-8s disconnected\n", s.Provider)
			continue
		}
		fmt.Printf("%-8s connected (%s) %s\n", s.Provider, s.Source, s.DisplayName)
	}
	return nil
}

// CredentialsConnect handles the credentials connect command.
//
// It reads a JSON credential document, validates it against the live
// provider and stores it encrypted. "-" reads the document from stdin so
// secrets need not touch the filesystem. An empty name lets the vault pick
// a display name from the validated identity.
func CredentialsConnect(ctx context.Context, configPath, provider, file, name string) error {
	kind, err := types.ParseKind(provider)
	if err != nil {
		return err
	}

	creds, err := readCredentials(file)
	if err != nil {
		return err
	}

	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Vault.Save(ctx, store.DefaultOrgID, kind, creds, name)
	if err != nil {
		var credErr *vault.CredentialError
		if errors.As(err, &credErr) {
			return fmt.Errorf("validation failed: %s", credErr.Message)
		}
		return err
	}

	fmt.Printf("%s connected as %s\n", kind, result.Identity)
	return nil
}

// CredentialsDisconnect handles the credentials disconnect command.
func CredentialsDisconnect(ctx context.Context, configPath, provider string) error {
	kind, err := types.ParseKind(provider)
	if err != nil {
		return err
	}

	app, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if err := app.Vault.Delete(ctx, store.DefaultOrgID, kind); err != nil {
		if errors.Is(err, vault.ErrImmutableSource) {
			return fmt.Errorf("%s credentials come from the environment; unset them in the operator configuration instead", kind)
		}
		return err
	}

	fmt.Printf("%s disconnected\n", kind)
	return nil
}

func readCredentials(file string) (types.Credentials, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return types.Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds types.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return types.Credentials{}, fmt.Errorf("credentials document is not valid JSON: %w", err)
	}
	return creds, nil
}
