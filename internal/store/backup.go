package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/kitchin/internal/model"
)

const backupCols = `id, object_key, size_bytes, status, error, started_at, completed_at`

func scanBackup(row scanner) (*model.Backup, error) {
	var b model.Backup
	var errMsg sql.NullString
	var started int64
	var completed sql.NullInt64
	if err := row.Scan(&b.ID, &b.ObjectKey, &b.SizeBytes, &b.Status, &errMsg, &started, &completed); err != nil {
		return nil, err
	}
	b.Error = errMsg.String
	b.StartedAt = fromMillis(started)
	b.CompletedAt = timePtr(completed)
	return &b, nil
}

// CreateBackup records an upload in progress.
func (s *Store) CreateBackup(ctx context.Context, objectKey string, now time.Time) (*model.Backup, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (object_key, status, started_at) VALUES (?, ?, ?)`,
		objectKey, model.BackupStatusUploading, toMillis(now),
	)
	if err != nil {
		return nil, insertErr("create backup", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("backup id: %w", err)
	}
	return &model.Backup{
		ID:        id,
		ObjectKey: objectKey,
		Status:    model.BackupStatusUploading,
		StartedAt: fromMillis(toMillis(now)),
	}, nil
}

func (s *Store) CompleteBackup(ctx context.Context, id, sizeBytes int64, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ?, error = NULL WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, toMillis(now), id,
	)
	if err != nil {
		return fmt.Errorf("complete backup: %w", err)
	}
	return nil
}

func (s *Store) FailBackup(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, error = ? WHERE id = ?`,
		model.BackupStatusFailed, msg, id,
	)
	if err != nil {
		return fmt.Errorf("fail backup: %w", err)
	}
	return nil
}

func (s *Store) GetBackup(ctx context.Context, id int64) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRowContext(ctx,
		`SELECT `+backupCols+` FROM backups WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get backup %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

// ListBackups returns the newest backups first.
func (s *Store) ListBackups(ctx context.Context, limit int) ([]model.Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+backupCols+` FROM backups ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// PruneBackups deletes failed records and all but the newest keep completed
// ones, returning the object keys of the deleted records. Uploads in progress
// are left alone.
func (s *Store) PruneBackups(ctx context.Context, keep int) ([]string, error) {
	var keys []string
	err := s.InTx(ctx, func(tx *Tx) error {
		rows, err := tx.tx.QueryContext(ctx,
			`SELECT object_key FROM backups
			 WHERE status = ? OR (status = ? AND id NOT IN (
			     SELECT id FROM backups WHERE status = ? ORDER BY started_at DESC, id DESC LIMIT ?
			 ))`,
			model.BackupStatusFailed, model.BackupStatusCompleted, model.BackupStatusCompleted, keep,
		)
		if err != nil {
			return fmt.Errorf("select old backups: %w", err)
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return fmt.Errorf("scan object key: %w", err)
			}
			keys = append(keys, key)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, key := range keys {
			if _, err := tx.tx.ExecContext(ctx, `DELETE FROM backups WHERE object_key = ?`, key); err != nil {
				return fmt.Errorf("delete old backup: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
