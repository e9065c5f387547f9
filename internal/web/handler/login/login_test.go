package login

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
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

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Title: "guardpost-test",
		Webserver: config.Webserver{
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

// seedDirectory creates a tenant with one internal directory and returns
// the directory ID.
func seedDirectory(t *testing.T, db *gorm.DB) string {
	t.Helper()

	tenant := models.Tenant{ID: uuid.NewString(), Name: "Default", Status: models.TenantStatusActive}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	params, err := directory.MarshalParameters(directory.Parameters{})
	if err != nil {
		t.Fatalf("failed to marshal parameters: %v", err)
	}

	dir := models.UserDirectory{
		ID:         uuid.NewString(),
		TenantID:   tenant.ID,
		Type:       directory.TypeInternal,
		Name:       "Internal",
		Parameters: params,
	}

	if err := db.Create(&dir).Error; err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	return dir.ID
}

func seedUser(t *testing.T, db *gorm.DB, directoryID, username, password string) {
	t.Helper()

	provider, err := directory.NewInternalDirectory(directoryID, directory.Parameters{}, db)
	if err != nil {
		t.Fatalf("failed to construct provider: %v", err)
	}

	user := models.User{Username: username, Name: "Test User", Password: password}
	if err := provider.CreateUser(&user, false, false); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
}

func setupHandler(t *testing.T, cfg *config.Config) (*fiber.App, *gorm.DB, string) {
	t.Helper()

	db := newTestDB(t)
	directoryID := seedDirectory(t, db)
	app := fiber.New()

	session.Init(nil)

	var s Service
	if err := s.Init(app, cfg, directory.NewRegistry(db)); err != nil {
		t.Fatalf("failed to init handler: %v", err)
	}

	return app, db, directoryID
}

func performLogin(t *testing.T, app *fiber.App, body Request) *http.Response {
	t.Helper()

	out, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, Path, bytes.NewReader(out))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestPost_Success(t *testing.T) {
	cfg := newTestConfig()
	app, db, directoryID := setupHandler(t, cfg)

	seedUser(t, db, directoryID, "alice", "s3cr3t")

	resp := performLogin(t, app, Request{DirectoryID: directoryID, Username: "alice", Password: "s3cr3t"})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got Response
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if got.Username != "alice" || got.DirectoryID != directoryID || got.UserID == "" {
		t.Fatalf("unexpected response: %+v", got)
	}

	if got.TenantID == "" {
		t.Fatalf("expected tenant ID in response")
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if !strings.Contains(setCookie, "session=") {
		t.Fatalf("expected session cookie, got %q", setCookie)
	}

	if !strings.Contains(strings.ToLower(setCookie), "secure") {
		t.Fatalf("expected Secure flag on cookie when DevMode=false, got %q", setCookie)
	}
}

func TestPost_DevModeDisablesSecure(t *testing.T) {
	cfg := newTestConfig()
	cfg.DevMode = true

	app, db, directoryID := setupHandler(t, cfg)
	seedUser(t, db, directoryID, "bob", "pass")

	resp := performLogin(t, app, Request{DirectoryID: directoryID, Username: "bob", Password: "pass"})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if setCookie := resp.Header.Get("Set-Cookie"); strings.Contains(strings.ToLower(setCookie), "secure") {
		t.Fatalf("did not expect Secure flag when DevMode=true, got %q", setCookie)
	}
}

func TestPost_WrongPassword(t *testing.T) {
	app, db, directoryID := setupHandler(t, newTestConfig())
	seedUser(t, db, directoryID, "carol", "right")

	resp := performLogin(t, app, Request{DirectoryID: directoryID, Username: "carol", Password: "wrong"})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

// A login attempt for a missing user must read like a bad password, not
// like a missing resource.
func TestPost_UnknownUser(t *testing.T) {
	app, _, directoryID := setupHandler(t, newTestConfig())

	resp := performLogin(t, app, Request{DirectoryID: directoryID, Username: "nobody", Password: "x"})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPost_UnknownDirectory(t *testing.T) {
	app, _, _ := setupHandler(t, newTestConfig())

	resp := performLogin(t, app, Request{DirectoryID: uuid.NewString(), Username: "alice", Password: "x"})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPost_MissingFields(t *testing.T) {
	app, _, _ := setupHandler(t, newTestConfig())

	resp := performLogin(t, app, Request{})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
