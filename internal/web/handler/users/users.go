// Package users provides the user administration and password lifecycle
// endpoints, backed by whichever directory the request addresses.
package users

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/middleware/auth"
)

// Path is the base path for user routes, nested under a directory.
const Path = handler.APIPath + "/directories/:directoryID/users"

// User is the JSON representation of a directory user. The password hash
// never leaves the server.
type User struct {
	ID             string     `json:"id,omitempty"`
	Username       string     `json:"username"`
	Status         int        `json:"status"`
	Name           string     `json:"name"`
	PreferredName  string     `json:"preferredName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Mobile         string     `json:"mobile"`
	PasswordExpiry *time.Time `json:"passwordExpiry,omitempty"`
}

// CreateRequest is the body for creating a user.
type CreateRequest struct {
	User
	Password        string `json:"password"`
	ExpiredPassword bool   `json:"expiredPassword"`
	Locked          bool   `json:"locked"`
}

// UpdateRequest is the body for updating a user.
type UpdateRequest struct {
	User
	ExpirePassword bool `json:"expirePassword"`
	Lock           bool `json:"lock"`
}

// ChangePasswordRequest is the body for the self-service password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// AdminPasswordRequest is the body for the administrative password change.
type AdminPasswordRequest struct {
	NewPassword          string `json:"newPassword"`
	ExpirePassword       bool   `json:"expirePassword"`
	LockUser             bool   `json:"lockUser"`
	ResetPasswordHistory bool   `json:"resetPasswordHistory"`
}

// SearchRequest is the body for the attribute search endpoint.
type SearchRequest struct {
	Attributes []directory.Attribute `json:"attributes"`
}

// ListResponse is the paged user listing response.
type ListResponse struct {
	Users         []User `json:"users"`
	Total         int64  `json:"total"`
	Filter        string `json:"filter"`
	SortBy        string `json:"sortBy"`
	SortDirection string `json:"sortDirection"`
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
}

// Service is the users handler service.
type Service struct {
	cfg      *config.Config
	registry *directory.Registry
}

// Handler is the users handler.
var Handler = Service{}

// Init initializes the users handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, registry *directory.Registry) error {
	if app == nil || cfg == nil || registry == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.registry = registry

	manage := auth.RequireFunction(models.FunctionUsersManage)

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.List)
		router.Post(handler.RouterRootPath, manage, s.Create)
		router.Post("/search", s.Search)
		router.Get("/:username", s.Get)
		router.Put("/:username", manage, s.Update)
		router.Delete("/:username", manage, s.Delete)
		router.Post("/:username/password", s.ChangePassword)
		router.Put("/:username/password", manage, s.AdminChangePassword)
		router.Post("/:username/password/reset", manage, s.ResetPassword)
		router.Get("/:username/groups", s.Groups)
		router.Get("/:username/roles", s.Roles)
		router.Get("/:username/functions", s.Functions)
	})

	return nil
}

// provider resolves the directory addressed by the request path.
func (s *Service) provider(c *fiber.Ctx) (directory.Provider, error) {
	return s.registry.Provider(c.Params("directoryID"))
}

func toUser(u models.User) User {
	return User{
		ID:             u.ID,
		Username:       u.Username,
		Status:         int(u.Status),
		Name:           u.Name,
		PreferredName:  u.PreferredName,
		Email:          u.Email,
		Phone:          u.Phone,
		Mobile:         u.Mobile,
		PasswordExpiry: u.PasswordExpiry,
	}
}

// List returns a filtered, sorted page of the directory's users.
func (s *Service) List(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	users, err := provider.GetUsers(
		c.Query("filter"),
		directory.UserSortBy(c.Query("sortBy", string(directory.UserSortByUsername))),
		directory.SortDirection(c.Query("sortDirection", string(directory.SortAscending))),
		c.QueryInt("page", 1),
		c.QueryInt("pageSize", directory.DefaultPageSize),
	)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	out := make([]User, len(users.Users))
	for i, u := range users.Users {
		out[i] = toUser(u)
	}

	return c.JSON(ListResponse{
		Users:         out,
		Total:         users.Total,
		Filter:        users.Filter,
		SortBy:        string(users.SortBy),
		SortDirection: string(users.SortDirection),
		Page:          users.Page,
		PageSize:      users.PageSize,
	})
}

// Search returns the users matching all given attribute predicates.
func (s *Service) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed search request")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	users, err := provider.FindUsers(req.Attributes)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	out := make([]User, len(users))
	for i, u := range users {
		out[i] = toUser(u)
	}

	return c.JSON(out)
}

// Get returns a single user.
func (s *Service) Get(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	user, err := provider.GetUser(c.Params("username"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(toUser(*user))
}

// Create creates a new user in the directory.
func (s *Service) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed user")
	}

	if req.Username == "" {
		return handler.BadRequest(c, "invalid_request", "username is required")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	user := models.User{
		Username:      req.Username,
		Password:      req.Password,
		Name:          req.Name,
		PreferredName: req.PreferredName,
		Email:         req.Email,
		Phone:         req.Phone,
		Mobile:        req.Mobile,
	}

	if err := provider.CreateUser(&user, req.ExpiredPassword, req.Locked); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toUser(user))
}

// Update updates a user's profile attributes and status flags.
func (s *Service) Update(c *fiber.Ctx) error {
	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed user")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	user := models.User{
		Username:      c.Params("username"),
		Status:        models.UserStatus(req.Status),
		Name:          req.Name,
		PreferredName: req.PreferredName,
		Email:         req.Email,
		Phone:         req.Phone,
		Mobile:        req.Mobile,
	}

	if err := provider.UpdateUser(&user, req.ExpirePassword, req.Lock); err != nil {
		return handler.DirectoryError(c, err)
	}

	updated, err := provider.GetUser(user.Username)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(toUser(*updated))
}

// Delete deletes a user.
func (s *Service) Delete(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.DeleteUser(c.Params("username")); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword is the self-service password change. Users may change
// their own password; changing someone else's requires the users.manage
// function.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	username := c.Params("username")

	sess := auth.Current(c)
	if sess == nil {
		return fiber.ErrUnauthorized
	}

	self := strings.EqualFold(sess.User.Username, username) &&
		sess.DirectoryID == c.Params("directoryID")
	if !self && !sess.HasFunction(models.FunctionUsersManage) {
		return fiber.ErrForbidden
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed password change request")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.ChangePassword(username, req.OldPassword, req.NewPassword); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AdminChangePassword sets a user's password without the old one.
func (s *Service) AdminChangePassword(c *fiber.Ctx) error {
	var req AdminPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed password request")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	err = provider.AdminChangePassword(
		c.Params("username"),
		req.NewPassword,
		req.ExpirePassword,
		req.LockUser,
		req.ResetPasswordHistory,
	)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ResetPassword sets a new password, still subject to the history check.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	var req AdminPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed password request")
	}

	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.ResetPassword(c.Params("username"), req.NewPassword); err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Groups returns the names of the groups the user is a member of.
func (s *Service) Groups(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	names, err := provider.GetGroupNamesForUser(c.Params("username"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(names)
}

// Roles returns the role codes the user receives through group membership.
func (s *Service) Roles(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	codes, err := provider.GetRoleCodesForUser(c.Params("username"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(codes)
}

// Functions returns the effective function codes of the user.
func (s *Service) Functions(c *fiber.Ctx) error {
	provider, err := s.provider(c)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	codes, err := provider.GetFunctionCodesForUser(c.Params("username"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(codes)
}
