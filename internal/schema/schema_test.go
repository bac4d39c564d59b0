package schema

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureSchemaOnFreshDatabaseReportsVersionZero(t *testing.T) {
	db := openTestDB(t)

	openedAt, err := EnsureSchema(db)
	require.NoError(t, err)
	require.Equal(t, 0, openedAt)

	var value string
	require.NoError(t, db.QueryRow(`SELECT value FROM magellan_meta WHERE key = 'schema_version'`).Scan(&value))
	require.Equal(t, "6", value)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	_, err := EnsureSchema(db)
	require.NoError(t, err)

	openedAt, err := EnsureSchema(db)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, openedAt)
}

func TestEnsureSchemaCarriesForwardFromPartialVersion(t *testing.T) {
	db := openTestDB(t)

	for _, m := range Migrations {
		if m.Version > 4 {
			continue
		}
		for _, stmt := range m.DDL {
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
	_, err := db.Exec(
		`INSERT INTO magellan_meta(key, value) VALUES ('schema_version', '4')`,
	)
	require.NoError(t, err)

	openedAt, err := EnsureSchema(db)
	require.NoError(t, err)
	require.Equal(t, 4, openedAt)

	var fileID int
	err = db.QueryRow(`SELECT file_id FROM ast_nodes LIMIT 1`).Scan(&fileID)
	require.Equal(t, sql.ErrNoRows, err)
}
