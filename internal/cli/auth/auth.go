package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service = "healthlens-cli"
)

// ErrNoToken is returned by LoadToken when nothing is stored for the server.
var ErrNoToken = errors.New("no stored token")

// keyFor returns a unique key for storing tokens per server. Scheme and
// trailing slashes are ignored so that "http://host/" and "host" share one entry.
func keyFor(serverURL string) string {
	host := strings.TrimRight(serverURL, "/")
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host + strings.TrimRight(u.Path, "/")
	}
	return fmt.Sprintf("token-%s", host)
}

// KeyringStore persists tokens in the OS keychain/credential manager
type KeyringStore struct{}

// NewKeyringStore returns a TokenStore backed by the OS keyring
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// SaveToken persists the token securely in the OS keychain/credential manager
func (k *KeyringStore) SaveToken(serverURL, token string) error {
	if err := keyring.Set(service, keyFor(serverURL), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the token from the OS keychain/credential manager
func (k *KeyringStore) LoadToken(serverURL string) (string, error) {
	token, err := keyring.Get(service, keyFor(serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the token from the OS keychain/credential manager
func (k *KeyringStore) DeleteToken(serverURL string) error {
	if err := keyring.Delete(service, keyFor(serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
