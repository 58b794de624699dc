package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/healthlens-dev/healthlens/internal/cli/userconfig"
)

const tokensFileName = "tokens.json"

// FileStore persists tokens in a 0600 JSON file, for machines without a
// usable keyring (headless Linux, containers).
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore at path, or at tokens.json in the user
// config directory when path is empty.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := userconfig.GetConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, tokensFileName)
	}
	return &FileStore{path: path}, nil
}

// Path returns the location of the tokens file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) SaveToken(serverURL, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return err
	}
	tokens[keyFor(serverURL)] = token
	return f.write(tokens)
}

func (f *FileStore) LoadToken(serverURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return "", err
	}
	token, ok := tokens[keyFor(serverURL)]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (f *FileStore) DeleteToken(serverURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return err
	}
	key := keyFor(serverURL)
	if _, ok := tokens[key]; !ok {
		return nil
	}
	delete(tokens, key)
	return f.write(tokens)
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	tokens := make(map[string]string)
	if len(data) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return tokens, nil
}

func (f *FileStore) write(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
