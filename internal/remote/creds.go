package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used for system keyring entries.
const KeyringService = "phi-remote"

// Credentials are the access keys for the remote object store.
type Credentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken,omitempty"`
}

// StorageBackend defines the interface for credential storage
type StorageBackend interface {
	Save(profile string, data []byte) error
	Load(profile string) ([]byte, error)
	Delete(profile string) error
	Name() string
}

// KeyringStorage uses the system keyring for credential storage
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{serviceName: serviceName}
}

func (s *KeyringStorage) Save(profile string, data []byte) error {
	return keyring.Set(s.serviceName, profile, string(data))
}

func (s *KeyringStorage) Load(profile string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, profile)
	if err != nil {
		return nil, fmt.Errorf("credentials not found for profile '%s': %w", profile, err)
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(profile string) error {
	return keyring.Delete(s.serviceName, profile)
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// FileStorage stores credentials in JSON files under the config
// directory. Used when no system keyring is available (CI, servers).
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a file storage backend
func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{baseDir: baseDir}
}

func (s *FileStorage) Save(profile string, data []byte) error {
	credFile := s.credentialFilePath(profile)
	if err := os.MkdirAll(filepath.Dir(credFile), 0700); err != nil {
		return err
	}
	return os.WriteFile(credFile, data, 0600)
}

func (s *FileStorage) Load(profile string) ([]byte, error) {
	data, err := os.ReadFile(s.credentialFilePath(profile))
	if err != nil {
		return nil, fmt.Errorf("credentials not found for profile '%s'", profile)
	}
	return data, nil
}

func (s *FileStorage) Delete(profile string) error {
	return os.Remove(s.credentialFilePath(profile))
}

func (s *FileStorage) Name() string {
	return "plain-file"
}

func (s *FileStorage) credentialFilePath(profile string) string {
	return filepath.Join(s.baseDir, "credentials", profile+".json")
}

// CredentialStore resolves credentials per profile, preferring the
// system keyring and falling back to file storage.
type CredentialStore struct {
	backend StorageBackend
}

// NewCredentialStore picks a backend: the system keyring when it is
// usable, otherwise JSON files under configDir.
func NewCredentialStore(configDir string) *CredentialStore {
	probe := "phi-keyring-probe"
	if err := keyring.Set(KeyringService, probe, "ok"); err == nil {
		_ = keyring.Delete(KeyringService, probe)
		return &CredentialStore{backend: NewKeyringStorage(KeyringService)}
	}
	return &CredentialStore{backend: NewFileStorage(configDir)}
}

// NewCredentialStoreWithBackend is used by tests to inject a backend.
func NewCredentialStoreWithBackend(backend StorageBackend) *CredentialStore {
	return &CredentialStore{backend: backend}
}

// BackendName names the active storage backend.
func (c *CredentialStore) BackendName() string {
	return c.backend.Name()
}

// Save stores credentials for a profile.
func (c *CredentialStore) Save(profile string, creds Credentials) error {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return fmt.Errorf("access key ID and secret access key are required")
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	return c.backend.Save(profile, data)
}

// Load retrieves credentials for a profile.
func (c *CredentialStore) Load(profile string) (*Credentials, error) {
	data, err := c.backend.Load(profile)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("corrupt credentials for profile '%s': %w", profile, err)
	}
	return &creds, nil
}

// Delete removes credentials for a profile.
func (c *CredentialStore) Delete(profile string) error {
	return c.backend.Delete(profile)
}

// LoadFromEnv reads credentials from the environment, or nil when the
// standard AWS variables are not set. Environment credentials beat
// stored profiles.
func LoadFromEnv() *Credentials {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return nil
	}
	return &Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
}
