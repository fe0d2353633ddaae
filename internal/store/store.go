// Package store persists document processing state. Two drivers are
// provided: SQLite for local single-binary use and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/visapath/i20-processor/internal/model"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = eris.New("store: document not found")

// DocumentRecord is the persisted state of one uploaded document.
type DocumentRecord struct {
	UserID     string                  `json:"user_id"`
	DocumentID string                  `json:"document_id"`
	Bucket     string                  `json:"bucket"`
	ObjectKey  string                  `json:"object_key"`
	Status     model.DocumentStatus    `json:"status"`
	Stage      model.Stage             `json:"stage,omitempty"`
	Data       *model.FieldMap         `json:"data,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Issues     []model.ValidationIssue `json:"validation_issues,omitempty"`
	Timeline   *model.Timeline         `json:"timeline,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// Store defines the persistence interface for document processing state.
// UpdateStatus satisfies the pipeline's status sink.
type Store interface {
	CreateDocument(ctx context.Context, userID, documentID string, loc model.DocumentLocation) (*DocumentRecord, error)
	UpdateStatus(ctx context.Context, userID, documentID string, update model.StatusUpdate) error
	GetDocument(ctx context.Context, userID, documentID string) (*DocumentRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver   string      `yaml:"driver" mapstructure:"driver"`
	SQLite   string      `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres string      `yaml:"postgres" mapstructure:"postgres"`
	Pool     *PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// New creates a Store for the configured driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.SQLite
		if dsn == "" {
			dsn = "i20.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		if cfg.Postgres == "" {
			return nil, eris.New("store: postgres driver requires a connection string")
		}
		return NewPostgres(ctx, cfg.Postgres, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
