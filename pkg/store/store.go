// Package store persists the analyst session: the signed-in user, their role,
// dashboard settings and the backend auth token.
//
// Values live in a single SQLite key-value table so the CLI commands and the
// terminal UI share one session file.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage keys.
const (
	KeySession = "scamshield-storage"
	KeyToken   = "auth_token"
)

// ErrInvalidRole is returned by SetUserRole for an unknown role.
var ErrInvalidRole = errors.New("invalid role")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store is a SQLite-backed session store. Methods are safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger

	mu sync.Mutex // serialises read-modify-write of the snapshot
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (creating if needed) the session database at path.
// ":memory:" gives a throwaway store.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create store directory for %s", path)
		}
	}

	s.logger.Debugw("Opening session store", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open session store")
	}
	// one connection keeps ":memory:" databases alive and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create kv table")
	}
	s.db = db
	return s, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read %s", key)
	}
	return v, true, nil
}

func (s *Store) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return errors.Wrapf(err, "write %s", key)
}

func (s *Store) del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return errors.Wrapf(err, "delete %s", key)
}

// Load returns the persisted session, or DefaultSession when none is stored.
// A snapshot that fails to decode is logged and replaced by defaults.
func (s *Store) Load(ctx context.Context) (Session, error) {
	raw, ok, err := s.get(ctx, KeySession)
	if err != nil || !ok {
		return DefaultSession(), err
	}
	sess := DefaultSession()
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warnw("Discarding unreadable session snapshot", "error", err)
		return DefaultSession(), nil
	}
	return sess, nil
}

// Save writes the session snapshot.
func (s *Store) Save(ctx context.Context, sess Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return s.put(ctx, KeySession, string(b))
}

func (s *Store) update(ctx context.Context, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.Load(ctx)
	if err != nil {
		return sess, err
	}
	if err := fn(&sess); err != nil {
		return sess, err
	}
	return sess, s.Save(ctx, sess)
}

// SetUser records u as the signed-in user.
func (s *Store) SetUser(ctx context.Context, u User) (Session, error) {
	sess, err := s.update(ctx, func(sess *Session) error {
		sess.User = &u
		sess.IsAuthenticated = true
		return nil
	})
	if err == nil {
		s.logger.Infow("User signed in", "username", u.Username, "role", u.Role)
	}
	return sess, err
}

// Logout clears the user. Role and settings are kept.
func (s *Store) Logout(ctx context.Context) (Session, error) {
	return s.update(ctx, func(sess *Session) error {
		sess.User = nil
		sess.IsAuthenticated = false
		return nil
	})
}

// SetUserRole sets the session role; it must be one of Roles.
func (s *Store) SetUserRole(ctx context.Context, r Role) (Session, error) {
	if !r.Valid() {
		return Session{}, errors.Wrapf(ErrInvalidRole, "%q", r)
	}
	return s.update(ctx, func(sess *Session) error {
		sess.UserRole = r
		return nil
	})
}

// UpdateSettings applies fn to the stored settings and persists the result.
func (s *Store) UpdateSettings(ctx context.Context, fn func(*Settings)) (Settings, error) {
	sess, err := s.update(ctx, func(sess *Session) error {
		fn(&sess.Settings)
		return sess.Settings.Validate()
	})
	return sess.Settings, err
}

// Token returns the stored auth token, or "" when there is none.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, KeyToken)
	return v, err
}

// SetToken stores the auth token. An empty token clears it.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	return s.put(ctx, KeyToken, token)
}

// ClearToken removes the auth token.
func (s *Store) ClearToken(ctx context.Context) error {
	if err := s.del(ctx, KeyToken); err != nil {
		return err
	}
	s.logger.Debugw("Cleared auth token", "path", s.path)
	return nil
}
