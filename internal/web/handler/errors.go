package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/directory"
)

// ErrorResponse is the JSON body returned for every failed API request.
type ErrorResponse struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
}

// errorMapping ties a directory domain error to its HTTP status and stable code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// mappings is ordered: the first match wins, so the more specific
// credential conditions come before the generic not-found ones.
var mappings = []errorMapping{
	{directory.ErrAuthenticationFailed, fiber.StatusUnauthorized, "authentication_failed"},
	{directory.ErrUserLocked, fiber.StatusLocked, "user_locked"},
	{directory.ErrExpiredPassword, fiber.StatusForbidden, "password_expired"},
	{directory.ErrExistingPassword, fiber.StatusConflict, "password_reused"},
	{directory.ErrDuplicateUser, fiber.StatusConflict, "duplicate_user"},
	{directory.ErrDuplicateGroup, fiber.StatusConflict, "duplicate_group"},
	{directory.ErrExistingGroupMembers, fiber.StatusConflict, "group_not_empty"},
	{directory.ErrUserNotFound, fiber.StatusNotFound, "user_not_found"},
	{directory.ErrGroupNotFound, fiber.StatusNotFound, "group_not_found"},
	{directory.ErrRoleNotFound, fiber.StatusNotFound, "role_not_found"},
	{directory.ErrGroupMemberNotFound, fiber.StatusNotFound, "group_member_not_found"},
	{directory.ErrGroupRoleNotFound, fiber.StatusNotFound, "group_role_not_found"},
	{directory.ErrDirectoryNotFound, fiber.StatusNotFound, "directory_not_found"},
	{directory.ErrDirectoryTypeNotFound, fiber.StatusNotFound, "directory_type_not_found"},
	{directory.ErrInvalidAttribute, fiber.StatusBadRequest, "invalid_attribute"},
	{directory.ErrInvalidConfiguration, fiber.StatusBadRequest, "invalid_configuration"},
}

// DirectoryError renders a directory layer error as a JSON API response.
// Domain errors map to specific statuses and codes; everything else is a
// 503 so clients can tell a backing-store outage from a caller mistake.
func DirectoryError(c *fiber.Ctx, err error) error {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(ErrorResponse{Code: m.code, Message: m.err.Error()})
		}
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Code:    "directory_unavailable",
		Message: "user directory unavailable",
	})
}

// BadRequest renders a 400 with the given code and message.
func BadRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: code, Message: message})
}
