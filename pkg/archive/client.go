// Package archive is an optional, best-effort Postgres mirror of
// cemented blocks: a read side for queries a downstream RPC layer
// would otherwise have to serve by walking the hot KV ledger directly.
// It is never consulted by validation, mutation, or rollback — losing
// the archive loses only query convenience, never ledger correctness.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/certen/ledgercore/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Client wraps a connection-pooled handle to the archive database.
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger overrides the client's logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient opens a pooled connection to cfg.ArchiveDatabaseURL and
// verifies it with a ping. Callers should only call this when
// ArchiveDatabaseURL is non-empty; see NewSink for the no-op path.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg.ArchiveDatabaseURL == "" {
		return nil, fmt.Errorf("archive: database URL cannot be empty")
	}

	client := &Client{logger: log.New(log.Writer(), "[Archive] ", log.LstdFlags)}
	for _, opt := range opts {
		opt(client)
	}

	db, err := sql.Open("postgres", cfg.ArchiveDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.ArchiveMaxOpenConns)
	db.SetMaxIdleConns(cfg.ArchiveMaxIdleConns)
	db.SetConnMaxLifetime(cfg.ArchiveConnMaxLife)
	client.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping database: %w", err)
	}

	client.logger.Printf("connected to archive database (max_open=%d, max_idle=%d)",
		cfg.ArchiveMaxOpenConns, cfg.ArchiveMaxIdleConns)
	return client, nil
}

// DB returns the underlying *sql.DB.
func (c *Client) DB() *sql.DB { return c.db }

// Close closes the pooled connection.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Println("closing archive database connection")
	return c.db.Close()
}

// migration is a single idempotent schema upgrade loaded from the
// embedded migrations directory.
type migration struct {
	Version string
	SQL     string
}

// MigrateUp applies every migration not yet recorded in
// schema_migrations, in version order.
func (c *Client) MigrateUp(ctx context.Context) error {
	c.logger.Println("running archive migrations...")

	migrations, err := c.loadMigrations()
	if err != nil {
		return fmt.Errorf("archive: load migrations: %w", err)
	}

	applied, err := c.appliedMigrations(ctx)
	if err != nil {
		if !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("archive: list applied migrations: %w", err)
		}
		applied = make(map[string]bool)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		c.logger.Printf("  applying %s", m.Version)
		if err := c.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("archive: apply migration %s: %w", m.Version, err)
		}
	}
	c.logger.Println("archive migrations complete")
	return nil
}

func (c *Client) loadMigrations() ([]migration, error) {
	var out []migration
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, migration{
			Version: strings.TrimSuffix(d.Name(), ".sql"),
			SQL:     string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (c *Client) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (c *Client) applyMigration(ctx context.Context, m migration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return tx.Commit()
}
