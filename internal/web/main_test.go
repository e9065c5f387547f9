package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/web/session"
)

func newService(t *testing.T) *Service {
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

	session.Init(nil)

	cfg := &config.Config{
		Title: "guardpost-test",
		Webserver: config.Webserver{
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}

	return New(cfg, db)
}

func get(t *testing.T, s *Service, target string) *http.Response {
	t.Helper()

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestNew_Healthz(t *testing.T) {
	s := newService(t)

	resp := get(t, s, HealthPath)

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNew_HealthzFailsWhenDraining(t *testing.T) {
	s := newService(t)
	s.alive.Store(false)

	resp := get(t, s, HealthPath)

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestNew_Metrics(t *testing.T) {
	s := newService(t)

	resp := get(t, s, "/metrics")

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNew_APIRequiresSession(t *testing.T) {
	s := newService(t)

	resp := get(t, s, "/api/directories")

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
