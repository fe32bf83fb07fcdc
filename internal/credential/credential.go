// Package credential stores the tracker API key in the system keyring.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "sprintsync"
	apiKeyEntry = "linear-api-key"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/sprintsync/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("sprintsync-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// APIKey retrieves the stored tracker API key.
func APIKey() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(apiKeyEntry)
	if err != nil {
		return "", fmt.Errorf("reading API key from keyring: %w", err)
	}

	return string(item.Data), nil
}

// StoreAPIKey saves the tracker API key, replacing any previous one.
func StoreAPIKey(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  apiKeyEntry,
		Data: []byte(key),
	})
	if err != nil {
		return fmt.Errorf("storing API key in keyring: %w", err)
	}

	return nil
}

// DeleteAPIKey removes the stored tracker API key.
func DeleteAPIKey() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(apiKeyEntry); err != nil {
		return fmt.Errorf("removing API key from keyring: %w", err)
	}

	return nil
}
