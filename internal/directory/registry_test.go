package directory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/db/models"
)

// seedDirectory inserts a user directory row and returns its ID.
func seedDirectory(t *testing.T, db *gorm.DB, tenantID, typeCode, name string, params Parameters) string {
	t.Helper()

	data, err := MarshalParameters(params)
	require.NoError(t, err, "failed to marshal parameters")

	dir := models.UserDirectory{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Type:       typeCode,
		Name:       name,
		Parameters: data,
	}

	err = db.Create(&dir).Error
	require.NoError(t, err, "failed to seed user directory")

	return dir.ID
}

func TestRegistryProvider(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	tenantID := uuid.NewString()
	directoryID := seedDirectory(t, db, tenantID, TypeInternal, "Corporate", Parameters{
		{Name: "MaxPasswordAttempts", Value: "3"},
	})

	provider, err := registry.Provider(directoryID)
	require.NoError(t, err)
	require.NotNil(t, provider)

	// Providers are cached per directory ID.
	again, err := registry.Provider(directoryID)
	require.NoError(t, err)
	assert.Same(t, provider, again)
}

func TestRegistryProviderNotFound(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	_, err := registry.Provider(uuid.NewString())
	assert.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestRegistryProviderUnknownType(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	directoryID := seedDirectory(t, db, uuid.NewString(), "kerberos", "Legacy", nil)

	_, err := registry.Provider(directoryID)
	assert.ErrorIs(t, err, ErrDirectoryTypeNotFound)
}

func TestRegistryProviderInvalidParameters(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	directoryID := seedDirectory(t, db, uuid.NewString(), TypeInternal, "Broken", Parameters{
		{Name: "MaxPasswordAttempts", Value: "many"},
	})

	_, err := registry.Provider(directoryID)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRegistryRegisterCustomType(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	registry.Register("custom", func(directoryID string, _ Parameters, db *gorm.DB) (Provider, error) {
		return NewInternalDirectory(directoryID, nil, db)
	})

	directoryID := seedDirectory(t, db, uuid.NewString(), "custom", "Custom", nil)

	provider, err := registry.Provider(directoryID)
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestRegistryDirectoriesForTenant(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db)

	tenantA := uuid.NewString()
	tenantB := uuid.NewString()

	seedDirectory(t, db, tenantA, TypeInternal, "Corporate", nil)
	seedDirectory(t, db, tenantA, TypeLDAP, "Active Directory", nil)
	seedDirectory(t, db, tenantB, TypeInternal, "Other", nil)

	dirs, err := registry.DirectoriesForTenant(tenantA)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "Active Directory", dirs[0].Name)
	assert.Equal(t, "Corporate", dirs[1].Name)

	all, err := registry.Directories()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
