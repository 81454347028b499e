package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/store/migrations"
	"github.com/Jsunwilke/employeeapp-sub003/internal/dbx"
)

// SQLiteStore is the embedded backend of the document store, used for local
// development and single-host deployments. Aggregates are stored as JSON
// documents; timestamps are unix nanoseconds so range filters stay cheap.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "sqlite"); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeShootDoc(doc []byte) (*models.Shoot, error) {
	var shoot models.Shoot
	if err := json.Unmarshal(doc, &shoot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &shoot, nil
}

func (s *SQLiteStore) GetShoot(ctx context.Context, id string) (*models.Shoot, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM shoots WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select shoot: %w", err)
	}
	return decodeShootDoc(doc)
}

func (s *SQLiteStore) PutShoot(ctx context.Context, shoot *models.Shoot) error {
	doc, err := json.Marshal(shoot)
	if err != nil {
		return fmt.Errorf("failed to encode shoot: %w", err)
	}
	query := `INSERT INTO shoots (id, org_id, shoot_date, doc, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET org_id = excluded.org_id,
				shoot_date = excluded.shoot_date,
				doc = excluded.doc,
				updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		shoot.ID, shoot.OrgID, shoot.Date.UnixNano(), doc, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert shoot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListShoots(ctx context.Context, orgID string) ([]*models.Shoot, error) {
	query := `SELECT doc FROM shoots WHERE org_id = ? ORDER BY shoot_date DESC`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to select shoots: %w", err)
	}
	defer rows.Close()

	var result []*models.Shoot
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		shoot, err := decodeShootDoc(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, shoot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) UpdateShoot(ctx context.Context, id string, fn func(*models.Shoot) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var doc []byte
		err := tx.QueryRowContext(ctx, `SELECT doc FROM shoots WHERE id = ?`, id).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to select shoot: %w", err)
		}

		shoot, err := decodeShootDoc(doc)
		if err != nil {
			return err
		}
		if err := fn(shoot); err != nil {
			return err
		}

		updated, err := json.Marshal(shoot)
		if err != nil {
			return fmt.Errorf("failed to encode shoot: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE shoots SET org_id = ?, shoot_date = ?, doc = ?, updated_at = ? WHERE id = ?`,
			shoot.OrgID, shoot.Date.UnixNano(), updated, s.now().UnixNano(), id)
		if err != nil {
			return fmt.Errorf("failed to update shoot: %w", err)
		}
		return nil
	})
}

// AcquireLock relies on a single conditional upsert: the DO UPDATE branch
// only fires for the current owner, so a lock held by anyone else leaves the
// row untouched and affects zero rows.
func (s *SQLiteStore) AcquireLock(ctx context.Context, lock models.Lock) (models.Lock, error) {
	lock.AcquiredAt = s.now().UTC()
	query := `INSERT INTO locks (aggregate_id, record_id, owner_id, owner_label, ts)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(aggregate_id, record_id) DO UPDATE SET
				owner_label = excluded.owner_label,
				ts = excluded.ts
			WHERE locks.owner_id = excluded.owner_id
	`
	res, err := s.db.ExecContext(ctx, query,
		lock.AggregateID, lock.RecordID, lock.OwnerID, lock.OwnerLabel, lock.AcquiredAt.UnixNano())
	if err != nil {
		return models.Lock{}, fmt.Errorf("failed to upsert lock: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return models.Lock{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return models.Lock{}, ErrLockHeld
	}
	return lock, nil
}

func (s *SQLiteStore) ReleaseLock(ctx context.Context, aggregateID, recordID, ownerID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM locks WHERE aggregate_id = ? AND record_id = ? AND owner_id = ?`,
			aggregateID, recordID, ownerID)
		if err != nil {
			return fmt.Errorf("failed to delete lock: %w", err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if ra > 0 {
			return nil
		}

		// Nothing deleted: either already released or held by someone else.
		var n int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM locks WHERE aggregate_id = ? AND record_id = ?`,
			aggregateID, recordID).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to check lock: %w", err)
		}
		if n > 0 {
			return ErrLockHeld
		}
		return nil
	})
}

func scanLocks(rows *sql.Rows) ([]models.Lock, error) {
	defer rows.Close()
	var locks []models.Lock
	for rows.Next() {
		var lock models.Lock
		var ts int64
		if err := rows.Scan(&lock.AggregateID, &lock.RecordID, &lock.OwnerID, &lock.OwnerLabel, &ts); err != nil {
			return nil, err
		}
		lock.AcquiredAt = time.Unix(0, ts).UTC()
		locks = append(locks, lock)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locks, nil
}

func (s *SQLiteStore) ListLocks(ctx context.Context, aggregateID string) ([]models.Lock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT aggregate_id, record_id, owner_id, owner_label, ts FROM locks WHERE aggregate_id = ? ORDER BY record_id`,
		aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to select locks: %w", err)
	}
	return scanLocks(rows)
}

func (s *SQLiteStore) DeleteStaleLocks(ctx context.Context, aggregateID string, olderThan time.Time) ([]models.Lock, error) {
	var removed []models.Lock
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT aggregate_id, record_id, owner_id, owner_label, ts FROM locks WHERE aggregate_id = ? AND ts < ? ORDER BY record_id`,
			aggregateID, olderThan.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to select stale locks: %w", err)
		}
		removed, err = scanLocks(rows)
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM locks WHERE aggregate_id = ? AND ts < ?`,
			aggregateID, olderThan.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to delete stale locks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *SQLiteStore) WatchLocks(ctx context.Context, aggregateID string) (<-chan []models.Lock, func()) {
	return pollLocks(ctx, func(ctx context.Context) ([]models.Lock, error) {
		return s.ListLocks(ctx, aggregateID)
	})
}
