// Package pgexport copies the vector index into a Postgres table using the
// pgvector extension.
package pgexport

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docqa/internal/domain"
)

// DB is the subset of *pgxpool.Pool the exporter needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Source is a readable vector index. Entries returns copies, so nothing is
// locked while batches are on the wire.
type Source interface {
	Entries(from, n int) []domain.IndexEntry
	Len() int
	Dimension() int
}

type Config struct {
	Table     string
	BatchSize int
	// Metric picks the operator class of the ivfflat index.
	Metric string
}

// Exporter writes index snapshots to Postgres.
type Exporter struct {
	db     DB
	config Config
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func New(db DB, config Config) (*Exporter, error) {
	if !identifier.MatchString(config.Table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidConfig, config.Table)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &Exporter{db: db, config: config}, nil
}

// Connect opens a pool for connString.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

func (e *Exporter) opsClass() string {
	if e.config.Metric == "inner_product" {
		return "vector_ip_ops"
	}
	return "vector_cosine_ops"
}

// Migrate creates the extension, table and similarity index.
func (e *Exporter) Migrate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: cannot export an index without a dimension", domain.ErrEmptyIndex)
	}
	if _, err := e.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			row_id BIGINT PRIMARY KEY,
			document_id TEXT NOT NULL,
			source TEXT NOT NULL,
			position INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, e.config.Table, dimension)
	if _, err := e.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding %s)
		WITH (lists = 100)`,
		e.config.Table, e.config.Table, e.opsClass())
	if _, err := e.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Export migrates the schema and upserts every entry in one transaction.
// Re-running it rewrites rows in place.
func (e *Exporter) Export(ctx context.Context, src Source) (int, error) {
	if err := e.Migrate(ctx, src.Dimension()); err != nil {
		return 0, err
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (row_id, document_id, source, position, start_offset, end_offset, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (row_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			source = EXCLUDED.source,
			position = EXCLUDED.position,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		e.config.Table)

	// Rows appended during the export are left for the next one.
	rows := src.Len()
	total := 0
	for from := 0; from < rows; from += e.config.BatchSize {
		entries := src.Entries(from, min(e.config.BatchSize, rows-from))
		if len(entries) == 0 {
			break
		}
		batch := &pgx.Batch{}
		for _, entry := range entries {
			c := entry.Chunk
			batch.Queue(stmt,
				int64(entry.ID),
				c.DocumentID,
				c.Source,
				c.Position,
				c.Start,
				c.End,
				c.Text,
				pgvector.NewVector(entry.Vector),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("failed to insert rows: %w", err)
		}
		total += len(entries)
		slog.Debug("exported batch", "table", e.config.Table, "rows", total)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	slog.Info("index exported", "table", e.config.Table, "rows", total)
	return total, nil
}
