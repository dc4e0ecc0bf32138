// Package domain holds the entities, error taxonomy and ports of pgdeveloper.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrNoActiveProfile = errors.New("no active connection profile selected")
	ErrConnection      = errors.New("connection failed")
	ErrQuery           = errors.New("query failed")
	ErrTimeout         = errors.New("timeout")
	ErrRateLimited     = errors.New("rate limited")
	ErrInternal        = errors.New("internal error")
)

// ConnectionProfile describes how to reach one PostgreSQL database.
// Field names on the wire match the connections.json written by earlier releases.
type ConnectionProfile struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=128"`
	Host     string `json:"host" yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port     int    `json:"port" yaml:"port" validate:"required,min=1,max=65535"`
	Database string `json:"database" yaml:"database" validate:"required"`
	Username string `json:"username" yaml:"username" validate:"required"`
	Password string `json:"password" yaml:"password,omitempty"`
	UseSSL   bool   `json:"useSsl" yaml:"use_ssl"`
}

func (p ConnectionProfile) String() string {
	return p.Name + " (" + p.Username + "@" + p.Host + ")"
}

// Database object types as reported by introspection and used by the explorer.
const (
	TypeRoot      = "ROOT"
	TypeSchema    = "SCHEMA"
	TypeFolder    = "FOLDER"
	TypeTable     = "TABLE"
	TypeView      = "VIEW"
	TypeFunction  = "FUNCTION"
	TypeProcedure = "PROCEDURE"
	TypeInfo      = "INFO"
)

// DbObject is a relation visible in a schema. Type is TypeTable or TypeView.
type DbObject struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ColumnInfo describes a table column.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int    `json:"size"`
	Nullable bool   `json:"nullable"`
}

// IndexInfo describes a table index.
type IndexInfo struct {
	Name   string `json:"name"`
	Unique bool   `json:"unique"`
}

// SidebarItem is the payload of one explorer tree node.
type SidebarItem struct {
	Label  string `json:"label"`
	Type   string `json:"type"`
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name,omitempty"`
}

// SearchResult is one row of the local object index.
type SearchResult struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Schema string `json:"schema"`
	Parent string `json:"parent,omitempty"`
}

// DatabaseCache is a snapshot of a connection's object structure.
type DatabaseCache struct {
	ConnectionName        string                 `json:"connectionName"`
	LastIntrospectionTime time.Time              `json:"lastIntrospectionTime"`
	Schemas               map[string]SchemaCache `json:"schemas"`
}

// SchemaCache holds the objects of one schema.
type SchemaCache struct {
	Name       string       `json:"name"`
	Tables     []TableCache `json:"tables"`
	Functions  []string     `json:"functions"`
	Procedures []string     `json:"procedures"`
}

// TableCache is a cached relation entry.
type TableCache struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ConsoleState is the persisted state of one SQL console.
type ConsoleState struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ConnectionName string `json:"connectionName"`
	Content        string `json:"content"`
}

// DefaultConsoleName is the name given to new consoles.
const DefaultConsoleName = "console.sql"

// NewConsole returns an empty console with a random id bound to
// defaultConnection.
func NewConsole(defaultConnection string) ConsoleState {
	return ConsoleState{ID: uuid.NewString(), Name: DefaultConsoleName, ConnectionName: defaultConnection}
}

// QueryResult is the outcome of executing one SQL text.
// Columns and Rows are set only when IsResultSet is true.
type QueryResult struct {
	IsResultSet bool          `json:"isResultSet"`
	Columns     []string      `json:"columns,omitempty"`
	Rows        [][]any       `json:"rows,omitempty"`
	UpdateCount int64         `json:"updateCount"`
	Message     string        `json:"message"`
	Truncated   bool          `json:"truncated"`
	Duration    time.Duration `json:"durationNs"`
}

// Ports

// ProfileStore persists connection profiles.
type ProfileStore interface {
	Load() ([]ConnectionProfile, error)
	SaveAll(profiles []ConnectionProfile) error
}

// CacheStore persists introspection snapshots keyed by connection name.
type CacheStore interface {
	Get(ctx Context, connection string) (DatabaseCache, error)
	Put(ctx Context, c DatabaseCache) error
	Delete(ctx Context, connection string) error
}

// SearchIndex is the local object index used by explorer search.
// An empty connection in Search matches every connection.
type SearchIndex interface {
	Clear(ctx Context, connection string) error
	Replace(ctx Context, connection string, items []SearchResult) error
	Search(ctx Context, connection, query string) ([]SearchResult, error)
}

// Metadata reads the catalog of a profile's database. An empty profile means
// the active profile.
type Metadata interface {
	Schemas(ctx Context, profile string) ([]string, error)
	Tables(ctx Context, profile, schema string) ([]DbObject, error)
	Functions(ctx Context, profile, schema string) ([]string, error)
	Procedures(ctx Context, profile, schema string) ([]string, error)
	Columns(ctx Context, profile, schema, table string) ([]ColumnInfo, error)
	Indexes(ctx Context, profile, schema, table string) ([]IndexInfo, error)
	RoutineSource(ctx Context, profile, schema, name string) (string, error)
}

// WorkspaceStore persists console state and console SQL text.
type WorkspaceStore interface {
	LoadState() ([]ConsoleState, error)
	SaveState(consoles []ConsoleState) error
	SaveContent(id, content string) error
	DeleteContent(id string) error
}

// Executor runs arbitrary SQL text against a profile.
type Executor interface {
	Execute(ctx Context, profile, sql string) (QueryResult, error)
}

// Context is an alias to context.Context so ports read uniformly.
type Context = context.Context
