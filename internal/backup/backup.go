package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

var (
	ErrDisabled   = errors.New("backup not configured")
	ErrInProgress = errors.New("backup already running")
)

// ObjectStore is the subset of the S3 client the manager uses.
type ObjectStore interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a path-style client, which R2, MinIO and B2 all accept.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

type Config struct {
	Bucket     string
	Prefix     string
	Passphrase string
	Interval   time.Duration
	// Retain is the number of completed backups kept in the bucket.
	Retain int
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager snapshots the database, encrypts the snapshot and uploads it.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	status  Status
	running bool

	db      *sql.DB
	store   *store.Store
	client  ObjectStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager returns a disabled manager when client is nil or no bucket or
// passphrase is configured.
func NewManager(cfg Config, db *sql.DB, st *store.Store, client ObjectStore, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "kitchin"
	}
	if cfg.Retain <= 0 {
		cfg.Retain = 14
	}
	mgr := &Manager{
		cfg:     cfg,
		db:      db,
		store:   st,
		client:  client,
		metrics: m,
		logger:  logger.With("component", "backup"),
		now:     time.Now,
		status:  Status{State: StateDisabled},
	}
	if client != nil && cfg.Bucket != "" && cfg.Passphrase != "" {
		mgr.status.State = StateIdle
	}
	return mgr
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) enabled() bool {
	return m.Status().State != StateDisabled
}

// Run takes a backup every interval until ctx is done. A disabled manager
// returns immediately.
func (m *Manager) Run(ctx context.Context) error {
	if !m.enabled() || m.cfg.Interval <= 0 {
		m.logger.Info("scheduled backups disabled")
		return nil
	}
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil && !errors.Is(err, ErrInProgress) {
				m.logger.Error("scheduled backup failed", "error", err)
			}
		}
	}
}

// RunOnce takes one backup and prunes old ones.
func (m *Manager) RunOnce(ctx context.Context) (*model.Backup, error) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return nil, ErrDisabled
	}
	if m.running {
		m.mu.Unlock()
		return nil, ErrInProgress
	}
	m.running = true
	last := m.status.LastBackup
	m.status = Status{State: StateRunning, LastBackup: last}
	m.mu.Unlock()

	b, err := m.runBackup(ctx)

	m.mu.Lock()
	m.running = false
	if err != nil {
		m.status = Status{State: StateError, LastBackup: last, Error: err.Error()}
	} else {
		m.status = Status{State: StateIdle, LastBackup: b.CompletedAt}
	}
	m.mu.Unlock()

	if err != nil {
		m.metrics.BackupRun("error")
		return nil, err
	}
	m.metrics.BackupRun("ok")

	if err := m.prune(ctx); err != nil {
		m.logger.Warn("prune backups", "error", err)
	}
	return b, nil
}

func (m *Manager) runBackup(ctx context.Context) (*model.Backup, error) {
	started := m.now().UTC()
	key := fmt.Sprintf("%s/%s.db.enc", m.cfg.Prefix, started.Format("2006-01-02T150405.000Z"))

	record, err := m.store.CreateBackup(ctx, key, started)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.upload(ctx, key)
	if err != nil {
		if ferr := m.store.FailBackup(context.WithoutCancel(ctx), record.ID, err.Error()); ferr != nil {
			m.logger.Error("record failed backup", "error", ferr)
		}
		return nil, err
	}

	done := m.now().UTC()
	if err := m.store.CompleteBackup(ctx, record.ID, size, done); err != nil {
		return nil, err
	}
	record.Status = model.BackupStatusCompleted
	record.SizeBytes = size
	record.CompletedAt = &done
	m.logger.Info("backup uploaded", "key", key, "bytes", size)
	return record, nil
}

func (m *Manager) upload(ctx context.Context, key string) (int64, error) {
	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

// snapshot copies the live database with VACUUM INTO, which is consistent
// under concurrent writers and folds in the WAL.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "kitchin-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func (m *Manager) prune(ctx context.Context) error {
	keys, err := m.store.PruneBackups(ctx, m.cfg.Retain)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete old backup object", "key", key, "error", err)
		}
	}
	return nil
}

// Restore downloads backup id, decrypts it, checks its integrity and writes
// it to dstPath. The server must not be using dstPath.
func (m *Manager) Restore(ctx context.Context, id int64, dstPath string) error {
	if !m.enabled() {
		return ErrDisabled
	}
	record, err := m.store.GetBackup(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != model.BackupStatusCompleted {
		return fmt.Errorf("backup %d is %s", id, record.Status)
	}

	obj, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	sealed, err := io.ReadAll(obj.Body)
	obj.Body.Close()
	if err != nil {
		return fmt.Errorf("read download: %w", err)
	}

	plain, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dstPath + ".restore"
	if err := os.WriteFile(tmp, plain, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(ctx, tmp); err != nil {
		return err
	}

	os.Remove(dstPath + "-wal")
	os.Remove(dstPath + "-shm")
	if err := os.Rename(tmp, dstPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	m.logger.Info("backup restored", "id", id, "path", dstPath)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
