package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/store/migrations"
	"github.com/Jsunwilke/employeeapp-sub003/internal/dbx"
)

// PostgresStore is the shared-deployment backend of the document store.
// Same document layout as SQLiteStore; row locking makes UpdateShoot a real
// per-document transaction under concurrent writers.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &PostgresStore{db: db, now: time.Now}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetShoot(ctx context.Context, id string) (*models.Shoot, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM shoots WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select shoot: %w", err)
	}
	return decodeShootDoc(doc)
}

func (s *PostgresStore) PutShoot(ctx context.Context, shoot *models.Shoot) error {
	doc, err := json.Marshal(shoot)
	if err != nil {
		return fmt.Errorf("failed to encode shoot: %w", err)
	}
	query := `INSERT INTO shoots (id, org_id, shoot_date, doc, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET org_id = excluded.org_id,
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

func (s *PostgresStore) ListShoots(ctx context.Context, orgID string) ([]*models.Shoot, error) {
	query := `SELECT doc FROM shoots WHERE org_id = $1 ORDER BY shoot_date DESC`
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

func (s *PostgresStore) UpdateShoot(ctx context.Context, id string, fn func(*models.Shoot) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var doc []byte
		err := tx.QueryRowContext(ctx, `SELECT doc FROM shoots WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
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
			`UPDATE shoots SET org_id = $1, shoot_date = $2, doc = $3, updated_at = $4 WHERE id = $5`,
			shoot.OrgID, shoot.Date.UnixNano(), updated, s.now().UnixNano(), id)
		if err != nil {
			return fmt.Errorf("failed to update shoot: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) AcquireLock(ctx context.Context, lock models.Lock) (models.Lock, error) {
	lock.AcquiredAt = s.now().UTC()
	query := `INSERT INTO locks (aggregate_id, record_id, owner_id, owner_label, ts)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (aggregate_id, record_id) DO UPDATE SET
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

func (s *PostgresStore) ReleaseLock(ctx context.Context, aggregateID, recordID, ownerID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM locks WHERE aggregate_id = $1 AND record_id = $2 AND owner_id = $3`,
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

		var n int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM locks WHERE aggregate_id = $1 AND record_id = $2`,
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

func (s *PostgresStore) ListLocks(ctx context.Context, aggregateID string) ([]models.Lock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT aggregate_id, record_id, owner_id, owner_label, ts FROM locks WHERE aggregate_id = $1 ORDER BY record_id`,
		aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to select locks: %w", err)
	}
	return scanLocks(rows)
}

func (s *PostgresStore) DeleteStaleLocks(ctx context.Context, aggregateID string, olderThan time.Time) ([]models.Lock, error) {
	var removed []models.Lock
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT aggregate_id, record_id, owner_id, owner_label, ts FROM locks WHERE aggregate_id = $1 AND ts < $2 ORDER BY record_id`,
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
			`DELETE FROM locks WHERE aggregate_id = $1 AND ts < $2`,
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

func (s *PostgresStore) WatchLocks(ctx context.Context, aggregateID string) (<-chan []models.Lock, func()) {
	return pollLocks(ctx, func(ctx context.Context) ([]models.Lock, error) {
		return s.ListLocks(ctx, aggregateID)
	})
}
