package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore over the libpq PGPASSWORD variable.
// It is read-only and answers for any account.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns PGPASSWORD for any account
func (e *EnvironmentStore) Retrieve(account string) (*Credential, error) {
	password := os.Getenv("PGPASSWORD")
	if password == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credential{
		Account:      account,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(account string) error {
	return ErrStoreUnavailable
}

// Exists checks if PGPASSWORD is set
func (e *EnvironmentStore) Exists(account string) bool {
	return os.Getenv("PGPASSWORD") != ""
}
