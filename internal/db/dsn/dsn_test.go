package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guardpost/guardpost/internal/config"
)

func TestCreate(t *testing.T) {
	testCases := []struct {
		name     string
		db       config.DB
		expected string
	}{
		{
			name: "mysql",
			db: config.DB{
				GormEngine: config.EngineMySQL,
				Host:       "db.local",
				Port:       3306,
				User:       "guardpost",
				Password:   "secret",
				Name:       "guardpost",
				Extras:     "parseTime=True",
			},
			expected: "guardpost:secret@tcp(db.local:3306)/guardpost?parseTime=True",
		},
		{
			name: "postgres",
			db: config.DB{
				GormEngine: config.EnginePostgres,
				Host:       "db.local",
				Port:       5432,
				User:       "guardpost",
				Password:   "secret",
				Name:       "guardpost",
				Extras:     "sslmode=disable",
			},
			expected: "host=db.local port=5432 user=guardpost password=secret dbname=guardpost sslmode=disable",
		},
		{
			name: "sqlite uses the name as file path",
			db: config.DB{
				GormEngine: config.EngineSQLite,
				Name:       "./guardpost.db",
			},
			expected: "./guardpost.db",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{DB: tc.db}
			assert.Equal(t, tc.expected, Create(cfg))
		})
	}
}
