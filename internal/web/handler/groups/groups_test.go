package groups

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/middleware/auth"
	"github.com/guardpost/guardpost/internal/web/session"
)

type testEnv struct {
	app         *fiber.App
	db          *gorm.DB
	provider    directory.Provider
	directoryID string
	cookie      string
}

// setupEnv builds an app with the handler mounted and an admin session
// carrying both management functions.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.UserDirectory{},
		&models.User{},
		&models.PasswordHistory{},
		&models.Group{},
		&models.GroupUser{},
		&models.Function{},
		&models.Role{},
		&models.RoleFunction{},
		&models.GroupRole{},
	)
	if err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	params, err := directory.MarshalParameters(directory.Parameters{})
	if err != nil {
		t.Fatalf("failed to marshal parameters: %v", err)
	}

	dir := models.UserDirectory{
		ID:         uuid.NewString(),
		TenantID:   uuid.NewString(),
		Type:       directory.TypeInternal,
		Name:       "Internal",
		Parameters: params,
	}

	if err = db.Create(&dir).Error; err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	provider, err := directory.NewInternalDirectory(dir.ID, directory.Parameters{}, db)
	if err != nil {
		t.Fatalf("failed to construct provider: %v", err)
	}

	admin := models.User{Username: "admin", Name: "Admin", Password: "pw"}
	if err = provider.CreateUser(&admin, false, false); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	session.Init(nil)

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		t.Fatalf("failed to generate session ID: %v", err)
	}

	data := session.Data{
		User:          admin,
		DirectoryID:   dir.ID,
		FunctionCodes: []string{models.FunctionGroupsManage, models.FunctionRolesManage},
	}

	if err = data.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("failed to write session: %v", err)
	}

	app := fiber.New()
	app.Use(auth.Middleware)

	cfg := &config.Config{
		Webserver: config.Webserver{Session: config.Session{ExpiryTime: time.Minute}},
	}

	var s Service
	if err = s.Init(app, cfg, directory.NewRegistry(db)); err != nil {
		t.Fatalf("failed to init handler: %v", err)
	}

	return &testEnv{app: app, db: db, provider: provider, directoryID: dir.ID, cookie: sessionID}
}

func (e *testEnv) request(t *testing.T, method, target string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		out, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}

		reader = bytes.NewReader(out)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: handler.SessionCookie, Value: e.cookie})

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func (e *testEnv) basePath() string {
	return "/api/directories/" + e.directoryID + "/groups"
}

func TestGroupLifecycle(t *testing.T) {
	env := setupEnv(t)

	// create
	resp := env.request(t, http.MethodPost, env.basePath(), Group{Name: "staff", Description: "Staff members"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created Group
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode created group: %v", err)
	}

	_ = resp.Body.Close()

	if created.ID == "" || created.Name != "staff" {
		t.Fatalf("unexpected created group: %+v", created)
	}

	// duplicate, case-insensitive
	resp = env.request(t, http.MethodPost, env.basePath(), Group{Name: "STAFF"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// update description
	resp = env.request(t, http.MethodPut, env.basePath()+"/staff", Group{Description: "All staff"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var updated Group
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode updated group: %v", err)
	}

	_ = resp.Body.Close()

	if updated.Description != "All staff" {
		t.Fatalf("unexpected updated group: %+v", updated)
	}

	// names
	resp = env.request(t, http.MethodGet, env.basePath()+"/names", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatalf("failed to decode names: %v", err)
	}

	_ = resp.Body.Close()

	if len(names) != 1 || names[0] != "staff" {
		t.Fatalf("unexpected names: %+v", names)
	}

	// delete
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	resp = env.request(t, http.MethodGet, env.basePath()+"/staff", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()
}

func TestMembership(t *testing.T) {
	env := setupEnv(t)

	user := models.User{Username: "mallory", Password: "pw"}
	if err := env.provider.CreateUser(&user, false, false); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err := env.provider.CreateGroup(&models.Group{Name: "staff"}); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	// add member
	resp := env.request(t, http.MethodPut, env.basePath()+"/staff/members/mallory", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// adding again is a no-op
	resp = env.request(t, http.MethodPut, env.basePath()+"/staff/members/mallory", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on repeat add, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// members listing
	resp = env.request(t, http.MethodGet, env.basePath()+"/staff/members", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var members MembersResponse
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}

	_ = resp.Body.Close()

	if members.Total != 1 || len(members.Members) != 1 || members.Members[0].MemberName != "mallory" {
		t.Fatalf("unexpected members: %+v", members)
	}

	// deleting a non-empty group is refused
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for non-empty group, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// remove member
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff/members/mallory", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// removing again reports the missing membership
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff/members/mallory", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat remove, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// empty group can now be deleted
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()
}

func TestRoleAssignment(t *testing.T) {
	env := setupEnv(t)

	if err := env.provider.CreateGroup(&models.Group{Name: "staff"}); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	if err := env.db.Create(&models.Role{Code: "Operator", Name: "Operator"}).Error; err != nil {
		t.Fatalf("failed to create role: %v", err)
	}

	// assign
	resp := env.request(t, http.MethodPut, env.basePath()+"/staff/roles/Operator", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// unknown role
	resp = env.request(t, http.MethodPut, env.basePath()+"/staff/roles/Nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown role, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// listing
	resp = env.request(t, http.MethodGet, env.basePath()+"/staff/roles", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var roles []directory.GroupRole
	if err := json.NewDecoder(resp.Body).Decode(&roles); err != nil {
		t.Fatalf("failed to decode roles: %v", err)
	}

	_ = resp.Body.Close()

	if len(roles) != 1 || roles[0].RoleCode != "Operator" {
		t.Fatalf("unexpected roles: %+v", roles)
	}

	// remove
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff/roles/Operator", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// removing again reports the missing assignment
	resp = env.request(t, http.MethodDelete, env.basePath()+"/staff/roles/Operator", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat remove, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()
}
