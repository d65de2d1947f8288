package imagecache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"golang.org/x/crypto/blake2b"

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// DefaultMaxBytes is the default cache size limit (256 MiB).
const DefaultMaxBytes int64 = 256 << 20

// Options configures a Store.
type Options struct {
	// MaxBytes caps the total size of stored images. Zero uses
	// DefaultMaxBytes; a negative value disables eviction.
	MaxBytes int64
	// Now overrides the clock used for access times.
	Now func() time.Time
}

// Stats summarizes the cache contents.
type Stats struct {
	Count int
	Bytes int64
}

// Store is the SQLite image cache.
type Store struct {
	db       *sql.DB
	path     string
	maxBytes int64
	now      func() time.Time

	// mu serializes writers; SQLite allows one at a time.
	mu sync.Mutex
}

// Open opens or creates the cache database at path. The parent directory
// is created if needed.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := diagnoseCachePermissions(path); err != nil {
		logging.Warn("Image cache permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open image cache: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close image cache after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to image cache: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path, maxBytes: opts.MaxBytes, now: opts.Now}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close image cache after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize image cache schema: %w", err)
	}

	s.updateMetrics(ctx)
	logging.Info("Image cache initialized at %s (limit %d bytes)", path, opts.MaxBytes)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		data BLOB NOT NULL,
		size INTEGER NOT NULL,
		digest TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_accessed ON images(accessed_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Key returns the cache key for url.
func Key(url string) string {
	sum := blake2b.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the bytes stored for url. ok is false on a miss.
func (s *Store) Get(ctx context.Context, url string) ([]byte, string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	key := Key(url)
	var (
		data        []byte
		contentType string
		sum         string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, content_type, digest FROM images WHERE key = ?`, key,
	).Scan(&data, &contentType, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ImageCacheMisses.Inc()
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("read cached image: %w", err)
	}

	if digest(data) != sum {
		logging.Warn("Cached image for %s is corrupt, dropping it", url)
		metrics.ImageCacheMisses.Inc()
		if err := s.Delete(ctx, url); err != nil {
			logging.Warn("Failed to drop corrupt cache entry: %v", err)
		}
		return nil, "", false, nil
	}

	s.mu.Lock()
	_, err = s.db.ExecContext(ctx, `UPDATE images SET accessed_at = ? WHERE key = ?`, s.now().UnixNano(), key)
	s.mu.Unlock()
	if err != nil {
		logging.Debug("Failed to update cache access time: %v", err)
	}

	metrics.ImageCacheHits.Inc()
	return data, contentType, true, nil
}

// Put stores data for url, replacing any previous entry, then evicts the
// least recently used entries while the cache is over its limit.
func (s *Store) Put(ctx context.Context, url, contentType string, data []byte) error {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		logging.Debug("Image %s (%d bytes) exceeds cache limit, not cached", url, len(data))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}

	now := s.now().UnixNano()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO images (key, url, content_type, data, size, digest, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data,
			size = excluded.size,
			digest = excluded.digest,
			accessed_at = excluded.accessed_at`,
		Key(url), url, contentType, data, len(data), digest(data), now, now)
	if err == nil {
		err = s.evictLocked(ctx, tx)
	}

	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return fmt.Errorf("write cached image: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cached image: %w", err)
	}

	s.updateMetrics(ctx)
	return nil
}

func (s *Store) evictLocked(ctx context.Context, tx *sql.Tx) error {
	if s.maxBytes < 0 {
		return nil
	}

	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM images`).Scan(&total); err != nil {
		return err
	}
	if total <= s.maxBytes {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT key, size FROM images ORDER BY accessed_at ASC, rowid ASC`)
	if err != nil {
		return err
	}
	var victims []string
	for rows.Next() && total > s.maxBytes {
		var (
			key  string
			size int64
		)
		if err := rows.Scan(&key, &size); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, key)
		total -= size
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, key := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE key = ?`, key); err != nil {
			return err
		}
	}
	if len(victims) > 0 {
		metrics.ImageCacheEvictions.Add(float64(len(victims)))
		logging.Debug("Evicted %d cached images", len(victims))
	}
	return nil
}

// Delete removes the entry for url.
func (s *Store) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE key = ?`, Key(url))
	if err == nil {
		s.updateMetrics(ctx)
	}
	return err
}

// Purge removes every entry and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM images`)
	if err != nil {
		return 0, fmt.Errorf("purge image cache: %w", err)
	}
	n, _ := res.RowsAffected()
	s.updateMetrics(ctx)
	logging.Info("Purged %d cached images", n)
	return n, nil
}

// Stats returns the entry count and total size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM images`,
	).Scan(&st.Count, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("image cache stats: %w", err)
	}
	return st, nil
}

// updateMetrics refreshes the size gauges.
func (s *Store) updateMetrics(ctx context.Context) {
	st, err := s.Stats(ctx)
	if err != nil {
		logging.Debug("Failed to read image cache stats: %v", err)
		return
	}
	metrics.ImageCacheCount.Set(float64(st.Count))
	metrics.ImageCacheSize.Set(float64(st.Bytes))
}

// diagnoseCachePermissions checks that the cache directory is writable and
// fixes read-only WAL files left behind by another user.
func diagnoseCachePermissions(path string) error {
	dir := filepath.Dir(path)

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("cache directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, p := range []string{path + "-wal", path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only (mode %v), fixing", p, info.Mode())
			if chmodErr := os.Chmod(p, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions of %s: %v", p, chmodErr)
			}
		}
	}
	return nil
}
