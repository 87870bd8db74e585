package auth

import (
	"errors"
	"fmt"
	"time"

	"imgharvest/pkg/config"
)

// Credential is a metadata store password keyed by account
type Credential struct {
	Account      string    `json:"account"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential
	Store(cred *Credential) error

	// Retrieve gets the credential for an account
	Retrieve(account string) (*Credential, error)

	// Delete removes the credential for an account
	Delete(account string) error

	// Exists checks if a credential exists for an account
	Exists(account string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager uses the system keychain when available, then PGPASSWORD
func NewManager() *Manager {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}
}

// NewManagerWithStores creates a manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// AccountKey identifies the credential of a store configuration
func AccountKey(cfg config.StoreConfig) string {
	return fmt.Sprintf("%s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
}

// Store saves the credential in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Account == "" {
		return ErrInvalidCredentials
	}
	if cred.Password == "" {
		return errors.New("password is required")
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(account string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(account); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for account: %s", ErrCredentialsNotFound, account)
}

// Delete removes the credential from every store that has it
func (m *Manager) Delete(account string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(account); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for account: %s", ErrCredentialsNotFound, account)
	}
	return nil
}

// ResolvePassword fills cfg.Password from the stores when it is empty and
// reports whether a stored password was used
func (m *Manager) ResolvePassword(cfg *config.StoreConfig) bool {
	if cfg.Password != "" {
		return false
	}

	cred, err := m.Retrieve(AccountKey(*cfg))
	if err != nil {
		return false
	}
	cfg.Password = cred.Password
	return true
}

// MaskPassword masks all but the first 2 and last 2 characters of a password
func MaskPassword(s string) string {
	if len(s) <= 6 {
		return "******"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
