// Package persistence writes validated tracker entities to storage. The
// store keeps one table per entity kind with the payload body serialized
// as JSON, plus an ownership table whose timestamps are touched when an
// entity under a tracked entity changes.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/trax/errors"
	"github.com/teranos/trax/tracker"
)

// Record is one entity prepared for a bulk write.
type Record struct {
	UID  string
	Body interface{}
}

// TrackerStore is the storage contract the persister drives.
type TrackerStore interface {
	BulkSave(ctx context.Context, t tracker.Type, records []Record) error
	BulkUpdate(ctx context.Context, t tracker.Type, records []Record) error
	BulkDelete(ctx context.Context, t tracker.Type, uids []string, atomic bool) (int, error)
	TouchOwners(ctx context.Context, trackedEntityUIDs []string, ts time.Time) error
}

// Schema creates the tracker tables. Bodies are stored as JSON so the
// payload shape can evolve without migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS tracked_entities (
	uid TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS enrollments (
	uid TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	uid TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS relationships (
	uid TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS entity_ownership (
	tracked_entity TEXT PRIMARY KEY,
	last_updated TIMESTAMP NOT NULL
);`

// Query constants
const (
	insertQuery = `INSERT INTO %TABLE% (uid, body, created_at, updated_at) VALUES (?, ?, ?, ?)`

	updateQuery = `UPDATE %TABLE% SET body = ?, updated_at = ? WHERE uid = ?`

	deleteQuery = `DELETE FROM %TABLE% WHERE uid = ?`

	touchOwnerQuery = `
		INSERT INTO entity_ownership (tracked_entity, last_updated)
		VALUES (?, ?)
		ON CONFLICT(tracked_entity) DO UPDATE SET last_updated = excluded.last_updated`
)

func tableFor(t tracker.Type) (string, error) {
	switch t {
	case tracker.TypeTrackedEntity:
		return "tracked_entities", nil
	case tracker.TypeEnrollment:
		return "enrollments", nil
	case tracker.TypeEvent:
		return "events", nil
	case tracker.TypeRelationship:
		return "relationships", nil
	}
	return "", errors.Newf("no table for entity type %q", t)
}

func queryFor(template string, t tracker.Type) (string, error) {
	table, err := tableFor(t)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(template, "%TABLE%", table), nil
}

// SQLStore implements TrackerStore on a SQL database (SQLite in
// production, sqlmock in tests).
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	clock  func() time.Time
}

// NewSQLStore creates a store over an open database handle.
func NewSQLStore(db *sql.DB, logger *zap.SugaredLogger) *SQLStore {
	return &SQLStore{db: db, logger: logger, clock: time.Now}
}

// EnsureSchema creates the tracker tables if they do not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrap(err, "failed to create tracker schema")
	}
	return nil
}

// BulkSave inserts new entities of one kind in a single transaction.
func (s *SQLStore) BulkSave(ctx context.Context, t tracker.Type, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	query, err := queryFor(insertQuery, t)
	if err != nil {
		return err
	}

	now := s.clock()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			body, err := json.Marshal(rec.Body)
			if err != nil {
				return errors.Wrapf(err, "failed to marshal %s %s", t, rec.UID)
			}
			if _, err := tx.ExecContext(ctx, query, rec.UID, string(body), now, now); err != nil {
				return errors.Wrapf(err, "failed to insert %s %s", t, rec.UID)
			}
		}
		return nil
	})
	if err != nil {
		return markWriteError(err)
	}
	return nil
}

// BulkUpdate rewrites existing entities of one kind in a single
// transaction.
func (s *SQLStore) BulkUpdate(ctx context.Context, t tracker.Type, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	query, err := queryFor(updateQuery, t)
	if err != nil {
		return err
	}

	now := s.clock()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			body, err := json.Marshal(rec.Body)
			if err != nil {
				return errors.Wrapf(err, "failed to marshal %s %s", t, rec.UID)
			}
			if _, err := tx.ExecContext(ctx, query, string(body), now, rec.UID); err != nil {
				return errors.Wrapf(err, "failed to update %s %s", t, rec.UID)
			}
		}
		return nil
	})
	if err != nil {
		return markWriteError(err)
	}
	return nil
}

// BulkDelete removes entities of one kind. Deletes run in their own
// transaction, separate from saves and updates. When atomic, one failed
// delete rolls back the whole group; otherwise failed deletes are
// skipped and the survivors commit. Returns the number of rows actually
// deleted, so a UID that never existed in storage does not count.
func (s *SQLStore) BulkDelete(ctx context.Context, t tracker.Type, uids []string, atomic bool) (int, error) {
	if len(uids) == 0 {
		return 0, nil
	}
	query, err := queryFor(deleteQuery, t)
	if err != nil {
		return 0, err
	}

	deleted := 0
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, uid := range uids {
			res, err := tx.ExecContext(ctx, query, uid)
			if err != nil {
				if atomic {
					return errors.Wrapf(err, "failed to delete %s %s", t, uid)
				}
				s.logger.Warnw("delete skipped", "type", t, "uid", uid, "error", err)
				continue
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errors.Wrapf(err, "failed to count deleted rows for %s %s", t, uid)
			}
			if n == 0 {
				s.logger.Warnw("delete matched no rows", "type", t, "uid", uid)
				continue
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, markWriteError(err)
	}
	return deleted, nil
}

// TouchOwners bumps the ownership timestamp for the given tracked
// entities. Callers are expected to deduplicate; duplicate UIDs here are
// harmless but wasteful.
func (s *SQLStore) TouchOwners(ctx context.Context, trackedEntityUIDs []string, ts time.Time) error {
	if len(trackedEntityUIDs) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, uid := range trackedEntityUIDs {
			if _, err := tx.ExecContext(ctx, touchOwnerQuery, uid, ts); err != nil {
				return errors.Wrapf(err, "failed to touch owner %s", uid)
			}
		}
		return nil
	})
	if err != nil {
		return markWriteError(err)
	}
	return nil
}

// markWriteError classifies a failed write group so callers can branch
// with errors.Is: constraint violations surface as ErrConflict,
// everything else as ErrPersistence.
func markWriteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return errors.Mark(err, errors.ErrConflict)
	}
	return errors.Mark(err, errors.ErrPersistence)
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Errorw("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
