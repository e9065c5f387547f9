// Package groups provides the group, membership, and role assignment
// endpoints, backed by whichever directory the request addresses.
package groups

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/middleware/auth"
)

// Path is the base path for group routes, nested under a directory.
const Path = handler.APIPath + "/directories/:directoryID/groups"

// Group is the JSON representation of a directory group.
type Group struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListResponse is the paged group listing response.
type ListResponse struct {
	Groups        []Group `json:"groups"`
	Total         int64   `json:"total"`
	Filter        string  `json:"filter"`
	SortDirection string  `json:"sortDirection"`
	Page          int     `json:"page"`
	PageSize      int     `json:"pageSize"`
}

// MembersResponse is the paged group member listing response.
type MembersResponse struct {
	Members       []directory.GroupMember `json:"members"`
	Total         int64                   `json:"total"`
	Filter        string                  `json:"filter"`
	SortDirection string                  `json:"sortDirection"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"pageSize"`
}

// Service is the groups handler service.
type Service struct {
	cfg      *config.Config
	registry *directory.Registry
}

// Handler is the groups handler.
var Handler = Service{}

// Init initializes the groups handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, registry *directory.Registry) error {
	if app == nil || cfg == nil || registry == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.registry = registry

	manage := auth.RequireFunction(models.FunctionGroupsManage)
	manageRoles := auth.RequireFunction(models.FunctionRolesManage)

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.List)
		router.Post(handler.RouterRootPath, manage, s.Create)
		router.Get("/names", s.Names)
		router.Get("/:groupName", s.Get)
		router.Put("/:groupName", manage, s.Update)
		router.Delete("/:groupName", manage, s.Delete)
		router.Get("/:groupName/members", s.Members)
		router.Put("/:groupName/members/:username", manage, s.AddMember)
		router.Delete("/:groupName/members/:username", manage, s.RemoveMember)
		router.Get("/:groupName/roles", s.Roles)
		router.Put("/:groupName/roles/:roleCode", manageRoles, s.AddRole)
		router.Delete("/:groupName/roles/:roleCode", manageRoles, s.RemoveRole)
	})

	return nil
}

// provider resolves the directory addressed by the request path.
func (s *Service) provider(c *fiber.Ctx) (directory.Provider, error) {
	return s.registry.Provider(c.Params("directoryID"))
}

func toGroup(g models.Group) Group {
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
	}
}

// List returns a filtered, sorted page of the directory's groups.
func (s *Service) List(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	groups, err := provider.GetGroups(
		c.Query("filter"),
		directory.SortDirection(c.Query("sortDirection", string(directory.SortAscending))),
		c.QueryInt("page", 1),
		c.QueryInt("pageSize", directory.DefaultPageSize),
	)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	out := make([]Group, len(groups.Groups))
	for i, g := range groups.Groups {
		out[i] = toGroup(g)
	}

	return c.JSON(ListResponse{
		Groups:        out,
		Total:         groups.Total,
		Filter:        groups.Filter,
		SortDirection: string(groups.SortDirection),
		Page:          groups.Page,
		PageSize:      groups.PageSize,
	})
}

// Names returns all group names in the directory.
func (s *Service) Names(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	names, err := provider.GetGroupNames()
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(names)
}

// Get returns a single group.
func (s *Service) Get(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	group, err := provider.GetGroup(c.Params("groupName"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(toGroup(*group))
}

// Create creates a new group.
func (s *Service) Create(c *fiber.Ctx) error {
	var req Group
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed group")
	}

	if req.Name == "" {
		return handler.BadRequest(c, "invalid_request", "group name is required")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	group := models.Group{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := provider.CreateGroup(&group); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toGroup(group))
}

// Update updates a group's description.
func (s *Service) Update(c *fiber.Ctx) error {
	var req Group
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed group")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	group := models.Group{
		Name:        c.Params("groupName"),
		Description: req.Description,
	}

	if err := provider.UpdateGroup(&group); err != nil {
		return handler.DirectoryError(c, err)
	}

	updated, err := provider.GetGroup(group.Name)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(toGroup(*updated))
}

// Delete deletes a group. Groups that still have members are refused.
func (s *Service) Delete(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.DeleteGroup(c.Params("groupName")); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Members returns a filtered, sorted page of the group's members.
func (s *Service) Members(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	members, err := provider.GetMembersForGroup(
		c.Params("groupName"),
		c.Query("filter"),
		directory.SortDirection(c.Query("sortDirection", string(directory.SortAscending))),
		c.QueryInt("page", 1),
		c.QueryInt("pageSize", directory.DefaultPageSize),
	)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(MembersResponse{
		Members:       members.Members,
		Total:         members.Total,
		Filter:        members.Filter,
		SortDirection: string(members.SortDirection),
		Page:          members.Page,
		PageSize:      members.PageSize,
	})
}

// AddMember adds a user to the group. Adding an existing member is a no-op.
func (s *Service) AddMember(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.AddUserToGroup(c.Params("groupName"), c.Params("username")); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMember removes a user from the group.
func (s *Service) RemoveMember(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.RemoveUserFromGroup(c.Params("groupName"), c.Params("username")); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Roles returns the roles assigned to the group.
func (s *Service) Roles(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	roles, err := provider.GetRolesForGroup(c.Params("groupName"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(roles)
}

// AddRole assigns a role to the group. Assigning an already assigned role
// is a no-op.
func (s *Service) AddRole(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.AddRoleToGroup(c.Params("groupName"), c.Params("roleCode")); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveRole removes a role assignment from the group.
func (s *Service) RemoveRole(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.RemoveRoleFromGroup(c.Params("groupName"), c.Params("roleCode")); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
