package directory

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/db/models"
)

const (
	// TypeInternal is the type code for the database-backed directory.
	TypeInternal = "internal"
	// TypeLDAP is the type code for the LDAP-backed directory.
	TypeLDAP = "ldap"
)

// Constructor builds a provider instance bound to one directory.
// Parameters are read once here and are immutable for the provider's lifetime.
type Constructor func(directoryID string, params Parameters, db *gorm.DB) (Provider, error)

// Registry resolves a user directory ID to a provider instance.
// Providers are constructed on first use and cached, since a directory's
// parameters do not change for the lifetime of a provider.
type Registry struct {
	db           *gorm.DB
	constructors map[string]Constructor

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry creates a registry with the built-in directory types registered.
func NewRegistry(db *gorm.DB) *Registry {
	r := &Registry{
		db:           db,
		constructors: make(map[string]Constructor),
		providers:    make(map[string]Provider),
	}

	r.Register(TypeInternal, NewInternalDirectory)
	r.Register(TypeLDAP, NewLDAPDirectory)

	return r
}

// Register registers a constructor for a directory type code.
func (r *Registry) Register(typeCode string, constructor Constructor) {
	r.constructors[typeCode] = constructor
}

// Provider resolves the given directory ID to a provider instance.
func (r *Registry) Provider(directoryID string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[directoryID]; ok {
		return p, nil
	}

	var dir models.UserDirectory

	err := r.db.Where("id = ?", directoryID).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDirectoryNotFound
	}

	if err != nil {
		return nil, coerce("resolve provider", directoryID, err)
	}

	constructor, ok := r.constructors[dir.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryTypeNotFound, dir.Type)
	}

	params, err := UnmarshalParameters(dir.Parameters)
	if err != nil {
		return nil, err
	}

	p, err := constructor(directoryID, params, r.db)
	if err != nil {
		return nil, coerce("construct provider", directoryID, err)
	}

	r.providers[directoryID] = p

	return p, nil
}

// Directory retrieves a single user directory row by ID.
func (r *Registry) Directory(directoryID string) (*models.UserDirectory, error) {
	var dir models.UserDirectory

	err := r.db.Where("id = ?", directoryID).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDirectoryNotFound
	}

	if err != nil {
		return nil, coerce("get directory", directoryID, err)
	}

	return &dir, nil
}

// DirectoryByName retrieves a single user directory row by name.
func (r *Registry) DirectoryByName(name string) (*models.UserDirectory, error) {
	var dir models.UserDirectory

	err := r.db.Where("lower(name) = lower(?)", name).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDirectoryNotFound
	}

	if err != nil {
		return nil, coerce("get directory by name", "", err)
	}

	return &dir, nil
}

// Directories lists all configured user directories.
func (r *Registry) Directories() ([]models.UserDirectory, error) {
	var dirs []models.UserDirectory
	if err := r.db.Order("name").Find(&dirs).Error; err != nil {
		return nil, coerce("list directories", "", err)
	}

	return dirs, nil
}

// DirectoriesForTenant lists the user directories belonging to one tenant.
func (r *Registry) DirectoriesForTenant(tenantID string) ([]models.UserDirectory, error) {
	var dirs []models.UserDirectory
	if err := r.db.Where("tenant_id = ?", tenantID).Order("name").Find(&dirs).Error; err != nil {
		return nil, coerce("list tenant directories", "", err)
	}

	return dirs, nil
}
