package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"imgharvest/pkg/config"
)

func TestManagerStoreRetrieveDelete(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(&Credential{Account: "postgres@localhost:5432/imagenes", Password: "s3cret"}))
	assert.True(t, store.Exists("postgres@localhost:5432/imagenes"))

	cred, err := manager.Retrieve("postgres@localhost:5432/imagenes")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Password)
	assert.False(t, cred.LastModified.IsZero())

	require.NoError(t, manager.Delete("postgres@localhost:5432/imagenes"))
	_, err = manager.Retrieve("postgres@localhost:5432/imagenes")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	assert.ErrorIs(t, manager.Delete("postgres@localhost:5432/imagenes"), ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
	assert.ErrorIs(t, manager.Store(&Credential{Password: "x"}), ErrInvalidCredentials)
	assert.Error(t, manager.Store(&Credential{Account: "a"}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("locked")
	broken.RetrieveError = errors.New("locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Credential{Account: "a", Password: "pw"}))
	assert.True(t, working.Exists("a"))

	cred, err := manager.Retrieve("a")
	require.NoError(t, err)
	assert.Equal(t, "pw", cred.Password)
}

func TestResolvePassword(t *testing.T) {
	manager, _ := NewMockManager()
	cfg := config.DefaultConfig().Metadata.Store

	assert.False(t, manager.ResolvePassword(&cfg))
	assert.Empty(t, cfg.Password)

	require.NoError(t, manager.Store(&Credential{Account: AccountKey(cfg), Password: "from-keyring"}))
	assert.True(t, manager.ResolvePassword(&cfg))
	assert.Equal(t, "from-keyring", cfg.Password)

	cfg.Password = "from-env"
	assert.False(t, manager.ResolvePassword(&cfg))
	assert.Equal(t, "from-env", cfg.Password)
}

func TestAccountKey(t *testing.T) {
	cfg := config.StoreConfig{User: "postgres", Host: "db", Port: 5433, Name: "imagenes"}
	assert.Equal(t, "postgres@db:5433/imagenes", AccountKey(cfg))
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv("PGPASSWORD", "")
	_, err := store.Retrieve("any")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists("any"))

	t.Setenv("PGPASSWORD", "pgpw")
	cred, err := store.Retrieve("any")
	require.NoError(t, err)
	assert.Equal(t, "pgpw", cred.Password)
	assert.ErrorIs(t, store.Store(cred), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("any"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Account: "acct", Password: "pw"}))
	assert.True(t, store.Exists("acct"))

	cred, err := store.Retrieve("acct")
	require.NoError(t, err)
	assert.Equal(t, "pw", cred.Password)

	require.NoError(t, store.Delete("acct"))
	assert.False(t, store.Exists("acct"))
	_, err = store.Retrieve("acct")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Delete("acct"), ErrCredentialsNotFound)
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "******", MaskPassword("short"))
	assert.Equal(t, "su...rd", MaskPassword("superpassword"))
}
