// Package usecase contains the application services behind the HTTP API and
// the CLI.
package usecase

import (
	"time"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// DataSource is the connection profile registry and pool owner.
type DataSource interface {
	AddProfile(p domain.ConnectionProfile) error
	RemoveProfile(name string) error
	SetActive(name string) bool
	ActiveName() string
	Profiles() []domain.ConnectionProfile
	Profile(name string) (domain.ConnectionProfile, bool)
	IsTemporary(name string) bool
	Resolve(name string) (string, error)
	Test(ctx domain.Context, name string) bool
	TestProfile(ctx domain.Context, p domain.ConnectionProfile) bool
	ConnectionInfo() string
	ConnectTemporary(host string, port int, database, username, password string, useSSL bool) (domain.ConnectionProfile, error)
	ReplaceProfiles(profiles []domain.ConnectionProfile)
}

// Resolver maps "" to the active profile name.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Limiter throttles an operation identified by key.
type Limiter interface {
	Allow(ctx domain.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// TableEditor runs the DDL behind the table and routine editors.
type TableEditor interface {
	AddColumn(ctx domain.Context, profile, schema, table, definition string) error
	DropColumn(ctx domain.Context, profile, schema, table, column string) error
	DropIndex(ctx domain.Context, profile, schema, index string) error
	ApplyRoutine(ctx domain.Context, profile, source string) error
}

// ReadinessCheck represents a single readiness check result used by handlers.
type ReadinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}
