// Package backup snapshots the SQLite database into object storage and
// prunes old snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"inkpost/internal/storage"
)

const (
	filePrefix = "inkpost-"
	fileSuffix = ".db"
	timeLayout = "20060102T150405Z"
)

// SnapshotFunc writes a consistent copy of the database to dest, which
// must not exist yet.
type SnapshotFunc func(ctx context.Context, dest string) error

type Config struct {
	Bucket    string
	KeyPrefix string
	// Keep is how many snapshots the scheduler leaves after each run.
	Keep int
	// Interval enables the scheduler when positive.
	Interval time.Duration
	TempDir  string
	Logger   *logrus.Logger
	// Progress, when set, is called during uploads.
	Progress func(done, total int64)
}

// Backup describes one stored snapshot.
type Backup struct {
	Key       string
	Location  string
	Size      int64
	CreatedAt time.Time
}

type Manager struct {
	cfg      Config
	store    storage.Service
	snapshot SnapshotFunc
	now      func() time.Time

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(cfg Config, store storage.Service, snapshot SnapshotFunc) (*Manager, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("backup bucket is required")
	}
	if store == nil || snapshot == nil {
		return nil, errors.New("backup storage and snapshot function are required")
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	if cfg.Keep <= 0 {
		cfg.Keep = 7
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Manager{cfg: cfg, store: store, snapshot: snapshot, now: time.Now}, nil
}

func (m *Manager) key(at time.Time) string {
	name := filePrefix + at.UTC().Format(timeLayout) + fileSuffix
	if m.cfg.KeyPrefix == "" {
		return name
	}
	return m.cfg.KeyPrefix + "/" + name
}

// Snapshot copies the database to a temporary file and uploads it.
func (m *Manager) Snapshot(ctx context.Context) (Backup, error) {
	dir, err := os.MkdirTemp(m.cfg.TempDir, "inkpost-backup-*")
	if err != nil {
		return Backup{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	createdAt := m.now().UTC().Truncate(time.Second)
	local := filepath.Join(dir, "snapshot.db")
	if err := m.snapshot(ctx, local); err != nil {
		return Backup{}, fmt.Errorf("snapshot database: %w", err)
	}
	info, err := os.Stat(local)
	if err != nil {
		return Backup{}, fmt.Errorf("stat snapshot: %w", err)
	}

	key := m.key(createdAt)
	location, err := m.store.UploadFile(ctx, local, storage.UploadOptions{
		Bucket:           m.cfg.Bucket,
		Key:              key,
		ContentType:      "application/vnd.sqlite3",
		ProgressCallback: m.cfg.Progress,
	})
	if err != nil {
		return Backup{}, err
	}

	m.cfg.Logger.WithFields(logrus.Fields{"location": location, "size": info.Size()}).Info("database backup uploaded")
	return Backup{Key: key, Location: location, Size: info.Size(), CreatedAt: createdAt}, nil
}

// List returns stored snapshots newest first. Objects under the prefix
// that do not look like snapshots are skipped.
func (m *Manager) List(ctx context.Context) ([]Backup, error) {
	prefix := filePrefix
	if m.cfg.KeyPrefix != "" {
		prefix = m.cfg.KeyPrefix + "/" + filePrefix
	}
	objects, err := m.store.ListObjects(ctx, m.cfg.Bucket, prefix)
	if err != nil {
		return nil, err
	}

	backups := make([]Backup, 0, len(objects))
	for _, obj := range objects {
		createdAt, ok := parseKey(obj.Key)
		if !ok {
			continue
		}
		backups = append(backups, Backup{
			Key:       obj.Key,
			Location:  fmt.Sprintf("s3://%s/%s", m.cfg.Bucket, obj.Key),
			Size:      obj.Size,
			CreatedAt: createdAt,
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

func parseKey(key string) (time.Time, bool) {
	name := path.Base(key)
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	t, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Prune deletes all but the newest keep snapshots and returns the removed keys.
func (m *Manager) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		return nil, errors.New("keep must be at least 1")
	}
	backups, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var stale []string
	for _, b := range backups[keep:] {
		stale = append(stale, b.Key)
	}
	if err := m.store.DeleteObjects(ctx, m.cfg.Bucket, stale); err != nil {
		return nil, err
	}
	m.cfg.Logger.Infof("pruned %d old backups", len(stale))
	return stale, nil
}

// Start runs Snapshot and Prune every Interval until Shutdown.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.Interval <= 0 {
		return errors.New("backup interval must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("backup scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				m.runOnce(loopCtx)
			}
		}
	}()
	m.cfg.Logger.Infof("backup scheduler started, interval %s", m.cfg.Interval)
	return nil
}

func (m *Manager) runOnce(ctx context.Context) {
	if _, err := m.Snapshot(ctx); err != nil {
		if ctx.Err() == nil {
			m.cfg.Logger.Warnf("scheduled backup: %v", err)
		}
		return
	}
	if _, err := m.Prune(ctx, m.cfg.Keep); err != nil && ctx.Err() == nil {
		m.cfg.Logger.Warnf("prune backups: %v", err)
	}
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

// Keep is the configured retention count.
func (m *Manager) Keep() int {
	return m.cfg.Keep
}
