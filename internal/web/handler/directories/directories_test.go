package directories

import (
	"encoding/json"
	"io"
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
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/middleware/auth"
	"github.com/guardpost/guardpost/internal/web/session"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err = db.AutoMigrate(&models.Tenant{}, &models.UserDirectory{}, &models.User{}, &models.PasswordHistory{}, &models.Group{}, &models.GroupUser{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	session.Init(nil)

	app := fiber.New()
	app.Use(auth.Middleware)

	cfg := &config.Config{
		Webserver: config.Webserver{Session: config.Session{ExpiryTime: time.Minute}},
	}

	var s Service
	if err = s.Init(app, cfg, directory.NewRegistry(db)); err != nil {
		t.Fatalf("failed to init handler: %v", err)
	}

	return app, db
}

func seedDirectory(t *testing.T, db *gorm.DB, tenantID, name string) models.UserDirectory {
	t.Helper()

	params, err := directory.MarshalParameters(directory.Parameters{})
	if err != nil {
		t.Fatalf("failed to marshal parameters: %v", err)
	}

	dir := models.UserDirectory{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Type:       directory.TypeInternal,
		Name:       name,
		Parameters: params,
	}

	if err = db.Create(&dir).Error; err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	return dir
}

func seedSession(t *testing.T, tenantID string) string {
	t.Helper()

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		t.Fatalf("failed to generate session ID: %v", err)
	}

	data := session.Data{
		User:     models.User{ID: "u1", Username: "alice"},
		TenantID: tenantID,
	}

	if err = data.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("failed to write session: %v", err)
	}

	return sessionID
}

func get(t *testing.T, app *fiber.App, target, cookie string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: handler.SessionCookie, Value: cookie})
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

// The listing is tenant-scoped: directories of other tenants stay hidden.
func TestList_TenantScoped(t *testing.T) {
	app, db := setupApp(t)

	tenantA := uuid.NewString()
	tenantB := uuid.NewString()
	seedDirectory(t, db, tenantA, "Internal")
	seedDirectory(t, db, tenantB, "Other")

	cookie := seedSession(t, tenantA)

	resp := get(t, app, Path, cookie)

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []Directory
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}

	if len(got) != 1 || got[0].Name != "Internal" {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

// Directory parameters hold credentials and must never appear in responses.
func TestGet_OmitsParameters(t *testing.T) {
	app, db := setupApp(t)

	tenantID := uuid.NewString()
	dir := seedDirectory(t, db, tenantID, "Internal")

	// give the row a parameter blob that must not leak
	secret := "hunter2-bind-password"
	params, err := directory.MarshalParameters(directory.Parameters{
		{Name: "BindPassword", Value: secret},
	})
	if err != nil {
		t.Fatalf("failed to marshal parameters: %v", err)
	}

	if err = db.Model(&models.UserDirectory{}).Where("id = ?", dir.ID).Update("parameters", params).Error; err != nil {
		t.Fatalf("failed to update parameters: %v", err)
	}

	cookie := seedSession(t, tenantID)

	resp := get(t, app, Path+"/"+dir.ID, cookie)

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	if strings.Contains(string(body), secret) {
		t.Fatalf("parameters leaked into response: %s", body)
	}

	var got Directory
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("failed to decode directory: %v", err)
	}

	if got.ID != dir.ID || got.Type != directory.TypeInternal {
		t.Fatalf("unexpected directory: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	app, db := setupApp(t)
	_ = db

	cookie := seedSession(t, uuid.NewString())

	resp := get(t, app, Path+"/"+uuid.NewString(), cookie)

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCapabilities(t *testing.T) {
	app, db := setupApp(t)

	tenantID := uuid.NewString()
	dir := seedDirectory(t, db, tenantID, "Internal")
	cookie := seedSession(t, tenantID)

	resp := get(t, app, Path+"/"+dir.ID+"/capabilities", cookie)

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var caps directory.Capabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		t.Fatalf("failed to decode capabilities: %v", err)
	}

	if !caps.UserAdministration || !caps.PasswordExpiry {
		t.Fatalf("unexpected capabilities for internal directory: %+v", caps)
	}
}
