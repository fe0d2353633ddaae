package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/visapath/i20-processor/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	user_id     TEXT NOT NULL,
	document_id TEXT NOT NULL,
	bucket      TEXT NOT NULL,
	object_key  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'processing',
	stage       TEXT,
	data        TEXT,
	error       TEXT,
	issues      TEXT,
	timeline    TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, document_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, userID, documentID string, loc model.DocumentLocation) (*DocumentRecord, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (user_id, document_id, bucket, object_key, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, documentID, loc.Bucket, loc.Key, string(model.StatusProcessing), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert document %s", documentID)
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

// UpdateStatus writes the status, stage, and whichever optional parts of the
// update are present. Absent parts keep their stored values.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, userID, documentID string, update model.StatusUpdate) error {
	query := `UPDATE documents SET status = ?, updated_at = ?`
	args := []any{string(update.Status), time.Now().UTC()}

	if update.Stage != "" {
		query += `, stage = ?`
		args = append(args, string(update.Stage))
	}
	if update.Data != nil {
		dataJSON, err := json.Marshal(update.Data)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal data")
		}
		query += `, data = ?`
		args = append(args, string(dataJSON))
	}
	if update.Error != "" {
		query += `, error = ?`
		args = append(args, update.Error)
	}
	if len(update.Issues) > 0 {
		issuesJSON, err := json.Marshal(update.Issues)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal issues")
		}
		query += `, issues = ?`
		args = append(args, string(issuesJSON))
	}
	if update.Timeline != nil {
		timelineJSON, err := json.Marshal(update.Timeline)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal timeline")
		}
		query += `, timeline = ?`
		args = append(args, string(timelineJSON))
	}

	query += ` WHERE user_id = ? AND document_id = ?`
	args = append(args, userID, documentID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document %s", documentID)
	}
	return checkRowsAffected(res, documentID)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, userID, documentID string) (*DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, document_id, bucket, object_key, status, stage, data, error, issues, timeline, created_at, updated_at
		 FROM documents WHERE user_id = ? AND document_id = ?`,
		userID, documentID,
	)

	var rec DocumentRecord
	var stage, data, errMsg, issues, timeline sql.NullString
	err := row.Scan(&rec.UserID, &rec.DocumentID, &rec.Bucket, &rec.ObjectKey, &rec.Status,
		&stage, &data, &errMsg, &issues, &timeline, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", documentID)
	}

	if err := decodeOptionalColumns(&rec, stage.String, data.String, errMsg.String, issues.String, timeline.String); err != nil {
		return nil, err
	}
	return &rec, nil
}

// helpers

func checkRowsAffected(res sql.Result, documentID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

func decodeOptionalColumns(rec *DocumentRecord, stage, data, errMsg, issues, timeline string) error {
	rec.Stage = model.Stage(stage)
	rec.Error = errMsg

	if data != "" {
		rec.Data = &model.FieldMap{}
		if err := json.Unmarshal([]byte(data), rec.Data); err != nil {
			return eris.Wrap(err, "store: unmarshal data")
		}
	}
	if issues != "" {
		if err := json.Unmarshal([]byte(issues), &rec.Issues); err != nil {
			return eris.Wrap(err, "store: unmarshal issues")
		}
	}
	if timeline != "" {
		rec.Timeline = &model.Timeline{}
		if err := json.Unmarshal([]byte(timeline), rec.Timeline); err != nil {
			return eris.Wrap(err, "store: unmarshal timeline")
		}
	}
	return nil
}
