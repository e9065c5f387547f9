package daemon

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/uniuri"
)

const (
	// AdministratorRoleCode is the role code seeded for the built-in
	// administrator role.
	AdministratorRoleCode = "Administrator"
	// AdministratorsGroupName is the group the seeded admin account is a
	// member of.
	AdministratorsGroupName = "admins"

	seedPasswordLength = 16
)

// seededFunctions are the functions the administrator role is granted.
var seededFunctions = []models.Function{
	{Code: models.FunctionUsersManage, Name: "Manage Users", Description: "Create, update, and delete directory users"},
	{Code: models.FunctionGroupsManage, Name: "Manage Groups", Description: "Create, update, and delete groups and memberships"},
	{Code: models.FunctionRolesManage, Name: "Manage Roles", Description: "Assign and remove group role mappings"},
	{Code: models.FunctionDirectoriesManage, Name: "Manage Directories", Description: "Configure user directories"},
}

// seed creates the initial tenant, internal directory, administrator role,
// and admin account on an empty database. A database with at least one
// tenant is left untouched.
func seed(cfg *config.Config, db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Tenant{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count tenants: %w", err)
	}

	if count > 0 {
		return nil
	}

	tenant := models.Tenant{
		ID:     uuid.NewString(),
		Name:   cfg.Seed.TenantName,
		Status: models.TenantStatusActive,
	}

	if err := db.Create(&tenant).Error; err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	params, err := directory.MarshalParameters(directory.Parameters{})
	if err != nil {
		return err
	}

	dir := models.UserDirectory{
		ID:         uuid.NewString(),
		TenantID:   tenant.ID,
		Type:       directory.TypeInternal,
		Name:       cfg.Seed.DirectoryName,
		Parameters: params,
	}

	if err = db.Create(&dir).Error; err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	for _, fn := range seededFunctions {
		if err = db.Create(&fn).Error; err != nil {
			return fmt.Errorf("failed to create function %s: %w", fn.Code, err)
		}
	}

	role := models.Role{
		Code:        AdministratorRoleCode,
		Name:        "Administrator",
		Description: "Full administrative access",
	}

	if err = db.Create(&role).Error; err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	for _, fn := range seededFunctions {
		mapping := models.RoleFunction{RoleCode: role.Code, FunctionCode: fn.Code}
		if err = db.Create(&mapping).Error; err != nil {
			return fmt.Errorf("failed to map function %s: %w", fn.Code, err)
		}
	}

	provider, err := directory.NewInternalDirectory(dir.ID, directory.Parameters{}, db)
	if err != nil {
		return err
	}

	group := models.Group{
		Name:        AdministratorsGroupName,
		Description: "Built-in administrators",
	}

	if err = provider.CreateGroup(&group); err != nil {
		return err
	}

	if err = provider.AddRoleToGroup(group.Name, role.Code); err != nil {
		return err
	}

	password := cfg.Seed.AdminPassword
	if password == "" {
		password = uniuri.NewLen(seedPasswordLength)

		// One-time credential for first login, printed since nothing else
		// ever knows it.
		log.Warn().
			Str("username", cfg.Seed.AdminUsername).
			Str("password", password).
			Msg("generated initial admin password")
	}

	admin := models.User{
		Username: cfg.Seed.AdminUsername,
		Name:     "Administrator",
		Password: password,
	}

	if err = provider.CreateUser(&admin, false, false); err != nil {
		return err
	}

	if err = provider.AddUserToGroup(group.Name, admin.Username); err != nil {
		return err
	}

	log.Info().
		Str("tenant", tenant.Name).
		Str("directory", dir.Name).
		Str("username", admin.Username).
		Msg("seeded initial data")

	return nil
}
