package infra

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

const (
	keyFileName = ".journal.key"
	keyBytes    = 32 // SQLCipher wants a 256-bit key
)

// FileKeyProvider keeps the journal's SQLCipher key as a hex string in a
// hidden 0600 file beside the database. Deleting the key file orphans
// the journal; both are recreated on the next daemon start.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a provider rooted at dataDir.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{
		keyPath: filepath.Join(dataDir, keyFileName),
	}
}

// Ensure returns the stored key, generating and persisting a fresh
// random key on first use.
func (p *FileKeyProvider) Ensure() ([]byte, error) {
	if p.KeyExists() {
		return p.GetKey()
	}
	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	if err := p.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GetKey reads and decodes the key file.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("read journal key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("decode journal key: %w", err)
	}
	if len(key) != keyBytes {
		return nil, fmt.Errorf("journal key is %d bytes, want %d", len(key), keyBytes)
	}
	return key, nil
}

// StoreKey writes the key, readable only by the owning user.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keyBytes {
		return fmt.Errorf("journal key is %d bytes, want %d", len(key), keyBytes)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	encoded := hex.EncodeToString(key)
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write journal key: %w", err)
	}
	return nil
}

// KeyExists reports whether a key file is present.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

func generateKey() ([]byte, error) {
	key := make([]byte, keyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate journal key: %w", err)
	}
	return key, nil
}

var _ domain.KeyProvider = (*FileKeyProvider)(nil)
