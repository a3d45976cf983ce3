package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/shorturl/internal/logger"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpSQLite_CreatesSchema(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, UpSQLite(db, logger.Discard()))

	for _, table := range []string{"urls", "stats"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}

	_, err := db.Exec("INSERT INTO urls (id, url) VALUES ('a', 'https://example.com/')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO stats (id) VALUES ('a')")
	require.NoError(t, err)

	var visits int
	require.NoError(t, db.QueryRow("SELECT visits_count FROM stats WHERE id = 'a'").Scan(&visits))
	assert.Equal(t, 0, visits, "visits_count defaults to zero")
}

func TestUpSQLite_Idempotent(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, UpSQLite(db, logger.Discard()))
	require.NoError(t, UpSQLite(db, logger.Discard()))

	var version int
	require.NoError(t, db.QueryRow("SELECT version FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestUpSQLite_PrimaryKeyOnID(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, UpSQLite(db, logger.Discard()))

	_, err := db.Exec("INSERT INTO urls (id, url) VALUES ('dup', 'https://a.example/')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO urls (id, url) VALUES ('dup', 'https://b.example/')")
	assert.Error(t, err)

	// url is not unique: the application dedups, the schema does not
	_, err = db.Exec("INSERT INTO urls (id, url) VALUES ('other', 'https://a.example/')")
	assert.NoError(t, err)
}
