package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/visapath/i20-processor/internal/model"
)

// Pool is the slice of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool creates a PostgresStore over an existing pool; for tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	user_id     TEXT NOT NULL,
	document_id TEXT NOT NULL,
	bucket      TEXT NOT NULL,
	object_key  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'processing',
	stage       TEXT,
	data        JSONB,
	error       TEXT,
	issues      JSONB,
	timeline    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, document_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, userID, documentID string, loc model.DocumentLocation) (*DocumentRecord, error) {
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (user_id, document_id, bucket, object_key, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, documentID, loc.Bucket, loc.Key, string(model.StatusProcessing), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert document %s", documentID)
	}

	return &DocumentRecord{
		UserID:     userID,
		DocumentID: documentID,
		Bucket:     loc.Bucket,
		ObjectKey:  loc.Key,
		Status:     model.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, userID, documentID string, update model.StatusUpdate) error {
	query := `UPDATE documents SET status = $1, updated_at = $2`
	args := []any{string(update.Status), time.Now().UTC()}

	appendArg := func(column string, value any) {
		args = append(args, value)
		query += `, ` + column + ` = $` + strconv.Itoa(len(args))
	}

	if update.Stage != "" {
		appendArg("stage", string(update.Stage))
	}
	if update.Data != nil {
		dataJSON, err := json.Marshal(update.Data)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal data")
		}
		appendArg("data", dataJSON)
	}
	if update.Error != "" {
		appendArg("error", update.Error)
	}
	if len(update.Issues) > 0 {
		issuesJSON, err := json.Marshal(update.Issues)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal issues")
		}
		appendArg("issues", issuesJSON)
	}
	if update.Timeline != nil {
		timelineJSON, err := json.Marshal(update.Timeline)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal timeline")
		}
		appendArg("timeline", timelineJSON)
	}

	args = append(args, userID, documentID)
	query += ` WHERE user_id = $` + strconv.Itoa(len(args)-1) + ` AND document_id = $` + strconv.Itoa(len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, userID, documentID string) (*DocumentRecord, error) {
	var rec DocumentRecord
	var stage, errMsg *string
	var data, issues, timeline []byte

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, document_id, bucket, object_key, status, stage, data, error, issues, timeline, created_at, updated_at
		 FROM documents WHERE user_id = $1 AND document_id = $2`,
		userID, documentID,
	).Scan(&rec.UserID, &rec.DocumentID, &rec.Bucket, &rec.ObjectKey, &rec.Status,
		&stage, &data, &errMsg, &issues, &timeline, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", documentID)
	}

	var stageStr, errStr string
	if stage != nil {
		stageStr = *stage
	}
	if errMsg != nil {
		errStr = *errMsg
	}
	if err := decodeOptionalColumns(&rec, stageStr, string(data), errStr, string(issues), string(timeline)); err != nil {
		return nil, err
	}
	return &rec, nil
}
