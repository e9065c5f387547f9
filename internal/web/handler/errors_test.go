package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/directory"
)

func renderError(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return DirectoryError(c, err)
	})

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if testErr != nil {
		t.Fatalf("app.Test failed: %v", testErr)
	}

	defer func() { _ = resp.Body.Close() }()

	var body ErrorResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
		t.Fatalf("failed to decode error body: %v", decodeErr)
	}

	return resp.StatusCode, body
}

func TestDirectoryError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"authentication failed", directory.ErrAuthenticationFailed, http.StatusUnauthorized, "authentication_failed"},
		{"user locked", directory.ErrUserLocked, http.StatusLocked, "user_locked"},
		{"expired password", directory.ErrExpiredPassword, http.StatusForbidden, "password_expired"},
		{"password reuse", directory.ErrExistingPassword, http.StatusConflict, "password_reused"},
		{"duplicate user", directory.ErrDuplicateUser, http.StatusConflict, "duplicate_user"},
		{"non-empty group", directory.ErrExistingGroupMembers, http.StatusConflict, "group_not_empty"},
		{"user not found", directory.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"group not found", directory.ErrGroupNotFound, http.StatusNotFound, "group_not_found"},
		{"directory not found", directory.ErrDirectoryNotFound, http.StatusNotFound, "directory_not_found"},
		{"invalid attribute", directory.ErrInvalidAttribute, http.StatusBadRequest, "invalid_attribute"},
		{
			"wrapped domain error",
			fmt.Errorf("change password: %w", directory.ErrExpiredPassword),
			http.StatusForbidden,
			"password_expired",
		},
		{
			"infrastructure failure",
			&directory.UnavailableError{Op: "get user", DirectoryID: "d1", Err: errors.New("dial tcp: refused")},
			http.StatusServiceUnavailable,
			"directory_unavailable",
		},
		{"unknown error", errors.New("boom"), http.StatusServiceUnavailable, "directory_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := renderError(t, tt.err)

			if status != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, status)
			}

			if body.Code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, body.Code)
			}
		})
	}
}

func TestBadRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return BadRequest(c, "invalid_request", "bad input")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if body.Code != "invalid_request" || body.Message != "bad input" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
