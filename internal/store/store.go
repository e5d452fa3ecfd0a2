// Package store is the sqlite-backed key-value storage behind the HTTP API:
// node payloads, access tokens, override tables and stored base configs.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Namespace string

const (
	NSNodes     Namespace = "nodes"
	NSAuth      Namespace = "auth"
	NSOverrides Namespace = "overrides"
	NSConfigs   Namespace = "configs"
)

// ConfigTTL is how long a stored base config stays readable.
const ConfigTTL = 30 * 24 * time.Hour

func ParseNamespace(s string) (Namespace, bool) {
	switch ns := Namespace(strings.ToLower(strings.TrimSpace(s))); ns {
	case NSNodes, NSAuth, NSOverrides, NSConfigs:
		return ns, true
	default:
		return "", false
	}
}

type StoreError struct {
	AppError model.AppError
	Cause    error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func storeErr(msg string, cause error) *StoreError {
	return &StoreError{
		AppError: model.AppError{Code: "STORE_ERROR", Message: msg, Stage: "store"},
		Cause:    cause,
	}
}

type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	// One writer at a time; sqlite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrateUp(path, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

func migrateUp(path string, log *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	v, dirty, _ := m.Version()
	log.Debug("database migrated", zap.String("path", path), zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns the value under ns/key. Expired entries read as absent.
func (s *Store) Get(ctx context.Context, ns Namespace, key string) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE namespace = ? AND key = ?`,
		string(ns), key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("读取存储失败", err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().Unix() {
		return "", false, nil
	}
	return value, true, nil
}

// Put writes ns/key. ttl <= 0 means the entry never expires.
func (s *Store) Put(ctx context.Context, ns Namespace, key, value string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return storeErr("存储键不能为空", nil)
	}
	now := s.now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(ttl).Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		string(ns), key, value, expiresAt, now.Unix(),
	)
	if err != nil {
		return storeErr("写入存储失败", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ns Namespace, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, string(ns), key); err != nil {
		return storeErr("删除存储失败", err)
	}
	return nil
}

// Purge removes every expired entry and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, storeErr("清理过期数据失败", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Info("purged expired entries", zap.Int64("count", n))
	}
	return n, nil
}

// PutConfig stores a base config under a fresh "<type>_<8 chars>" id for
// ConfigTTL and returns the id.
func (s *Store) PutConfig(ctx context.Context, typ, content string) (string, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		typ = "clash"
	}
	id := typ + "_" + uuid.New().String()[:8]
	if err := s.Put(ctx, NSConfigs, id, content, ConfigTTL); err != nil {
		return "", err
	}
	return id, nil
}

// View binds the store to one namespace.
func (s *Store) View(ns Namespace) View { return View{s: s, ns: ns} }

// View is a single-namespace read view; it satisfies override.Source.
type View struct {
	s  *Store
	ns Namespace
}

func (v View) Get(ctx context.Context, key string) (string, bool, error) {
	return v.s.Get(ctx, v.ns, key)
}
