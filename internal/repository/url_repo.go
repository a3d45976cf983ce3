package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/migrations"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("id already exists")
)

// Dialect selects placeholder syntax and error decoding for SQLRepository
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLRepository stores url mappings and visit counters in the urls and stats
// tables of a SQLite or PostgreSQL database
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (or creates) the SQLite database at path and
// migrates it. ":memory:" gives a private in-memory database.
func NewSQLiteRepository(path string, log *logger.Logger) (*SQLRepository, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool
	db.SetMaxOpenConns(1)

	if err := migrations.UpSQLite(db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLRepository{db: db, dialect: DialectSQLite}, nil
}

// NewPostgresRepository connects to dsn, migrates the schema and returns a
// repository backed by a pool of at most maxOpenConns connections
func NewPostgresRepository(ctx context.Context, dsn string, maxOpenConns int, log *logger.Logger) (*SQLRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrations.UpPostgres(dsn, log); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLRepository{db: db, dialect: DialectPostgres}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// FindIDByURL returns the id of the first mapping for url
func (r *SQLRepository) FindIDByURL(ctx context.Context, url string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		r.rebind("SELECT id FROM urls WHERE url = ? LIMIT 1"),
		url,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

// FindURLByID returns the long url stored under id
func (r *SQLRepository) FindURLByID(ctx context.Context, id string) (string, error) {
	var url string
	err := r.db.QueryRowContext(ctx,
		r.rebind("SELECT url FROM urls WHERE id = ?"),
		id,
	).Scan(&url)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return url, err
}

// InsertMapping creates the urls row
func (r *SQLRepository) InsertMapping(ctx context.Context, id, url string) error {
	_, err := r.db.ExecContext(ctx,
		r.rebind("INSERT INTO urls (id, url) VALUES (?, ?)"),
		id, url,
	)
	return r.translate(err)
}

// InsertStats creates the stats row with a zero visit count
func (r *SQLRepository) InsertStats(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		r.rebind("INSERT INTO stats (id) VALUES (?)"),
		id,
	)
	return r.translate(err)
}

// IncrementVisits adds one to the visit count of id in a single statement,
// so concurrent redirects never lose an update
func (r *SQLRepository) IncrementVisits(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		r.rebind("UPDATE stats SET visits_count = visits_count + 1 WHERE id = ?"),
		id,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Visits returns the visit count of id
func (r *SQLRepository) Visits(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		r.rebind("SELECT visits_count FROM stats WHERE id = ?"),
		id,
	).Scan(&count)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return count, err
}

// Ping checks the database is reachable
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying database
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// translate maps primary key violations to ErrDuplicateID
func (r *SQLRepository) translate(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("%w: %v", ErrDuplicateID, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %v", ErrDuplicateID, err)
	}

	return err
}
