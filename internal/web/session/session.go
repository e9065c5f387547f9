// Package session holds the server-side session store and the data kept
// per authenticated user.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage"

	"github.com/guardpost/guardpost/internal/db/models"
)

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
type Data struct {
	// User is the authenticated user as the directory reported it.
	User models.User
	// DirectoryID is the user directory the user authenticated against.
	DirectoryID string
	// TenantID is the tenant owning that directory.
	TenantID string
	// FunctionCodes are the user's effective permissions, resolved at login.
	FunctionCodes []string
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// HasFunction reports whether the session carries the given function code.
func (s *Data) HasFunction(code string) bool {
	for _, c := range s.FunctionCodes {
		if c == code {
			return true
		}
	}

	return false
}

// Init initializes the session store with the provided storage backend.
// A nil storage falls back to fiber's in-process memory store, which is
// what the embedded database engine uses.
func Init(storage storage.Storage) {
	cfg := session.Config{}
	if storage != nil {
		cfg.Storage = storage
	}

	Store = session.New(cfg)
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
