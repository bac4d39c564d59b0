// Package schema owns the relational backend's table layout as a sequence
// of versioned migrations (spec §6: "schema managed via monotonically-
// versioned migrations"), rather than one static DDL string applied
// unconditionally. Each Migration only adds what that version introduced,
// so EnsureSchema can carry a database opened at any earlier version
// forward to CurrentVersion by replaying just the steps it is missing.
package schema

import (
	"database/sql"
	"fmt"
	"strconv"
)

// CurrentVersion is the magellan_meta.magellan_schema_version this build
// writes and expects (spec §6's persisted-state layout). internal/migrate's
// upgrade rules are expressed in terms of this sequence.
const CurrentVersion = 6

// Migration is one version's incremental DDL. Every statement must be safe
// to run against a database already at Version-1 and never re-run again:
// EnsureSchema skips any migration whose Version is already applied, so
// CREATE TABLE IF NOT EXISTS/CREATE INDEX IF NOT EXISTS cover the common
// case and a bare ALTER TABLE is safe precisely because it only runs once.
type Migration struct {
	Version int
	DDL     []string
}

// Migrations is ordered oldest to newest. Table introductions follow the
// versions spec.md §6 names explicitly (v4 introduces execution_log ahead
// of ast_nodes, v5 introduces ast_nodes, v6 adds its file_id column) so
// that a database opened at any of those versions has exactly the delta
// applied to it, not the whole schema reapplied.
var Migrations = []Migration{
	{
		Version: 1,
		DDL: []string{
			`CREATE TABLE IF NOT EXISTS magellan_meta (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS graph_entities (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				kind       TEXT NOT NULL,
				name       TEXT NOT NULL,
				file_path  TEXT NOT NULL,
				unique_key TEXT,
				data       BLOB
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_unique
				ON graph_entities(kind, file_path, unique_key)
				WHERE unique_key IS NOT NULL`,
			`CREATE INDEX IF NOT EXISTS idx_entities_file_path ON graph_entities(file_path)`,
			`CREATE TABLE IF NOT EXISTS graph_edges (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				from_id   INTEGER NOT NULL,
				to_id     INTEGER NOT NULL,
				edge_type TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_from ON graph_edges(from_id, edge_type)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_to ON graph_edges(to_id, edge_type)`,
			`CREATE TABLE IF NOT EXISTS side_kv (
				key        BLOB PRIMARY KEY,
				value      BLOB NOT NULL,
				expires_at INTEGER
			)`,
		},
	},
	{
		Version: 2,
		DDL: []string{
			`CREATE TABLE IF NOT EXISTS code_chunks (
				file_path    TEXT NOT NULL,
				byte_start   INTEGER NOT NULL,
				byte_end     INTEGER NOT NULL,
				content      BLOB NOT NULL,
				content_hash TEXT NOT NULL,
				symbol_name  TEXT,
				symbol_kind  TEXT,
				created_at   INTEGER NOT NULL,
				PRIMARY KEY (file_path, byte_start, byte_end)
			)`,
		},
	},
	{
		Version: 3,
		DDL: []string{
			`CREATE TABLE IF NOT EXISTS file_metrics (
				path         TEXT PRIMARY KEY,
				symbol_count INTEGER NOT NULL,
				loc          INTEGER NOT NULL,
				fan_in       INTEGER NOT NULL,
				fan_out      INTEGER NOT NULL,
				complexity   REAL NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS symbol_metrics (
				symbol_id  TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				kind       TEXT NOT NULL,
				file_path  TEXT NOT NULL,
				loc        INTEGER NOT NULL,
				fan_in     INTEGER NOT NULL,
				fan_out    INTEGER NOT NULL,
				cyclomatic INTEGER NOT NULL
			)`,
		},
	},
	{
		Version: 4,
		DDL: []string{
			`CREATE TABLE IF NOT EXISTS execution_log (
				execution_id    TEXT PRIMARY KEY,
				tool_version    TEXT NOT NULL,
				args            TEXT NOT NULL,
				root            TEXT NOT NULL,
				database_path   TEXT NOT NULL,
				started_at      INTEGER NOT NULL,
				finished_at     INTEGER,
				outcome         TEXT NOT NULL,
				error_message   TEXT,
				file_count      INTEGER NOT NULL,
				symbol_count    INTEGER NOT NULL,
				reference_count INTEGER NOT NULL
			)`,
		},
	},
	{
		// v4->v5: creates ast_nodes (spec §6's migration-compatibility note),
		// deliberately without file_id yet so v6's ALTER TABLE below has
		// something to add.
		Version: 5,
		DDL: []string{
			`CREATE TABLE IF NOT EXISTS ast_nodes (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				parent_id INTEGER,
				kind      TEXT NOT NULL,
				span      TEXT NOT NULL
			)`,
		},
	},
	{
		// v5->v6: adds ast_nodes.file_id and its index (spec §6), and
		// introduces cfg_blocks.
		Version: 6,
		DDL: []string{
			`ALTER TABLE ast_nodes ADD COLUMN file_id INTEGER NOT NULL DEFAULT 0`,
			`CREATE INDEX IF NOT EXISTS idx_ast_nodes_file ON ast_nodes(file_id)`,
			`CREATE TABLE IF NOT EXISTS cfg_blocks (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				function_id INTEGER NOT NULL,
				kind        TEXT NOT NULL,
				terminator  TEXT NOT NULL,
				span        TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_cfg_blocks_function ON cfg_blocks(function_id)`,
		},
	},
}

// EnsureSchema carries db forward from whatever version it is currently at
// (0 for a brand-new database, per spec §6's "new/empty paths bypass
// preflight") to CurrentVersion, and returns the version it was opened at
// so the caller can apply internal/migrate's upgrade-rule policy on top.
func EnsureSchema(db *sql.DB) (openedAt int, err error) {
	openedAt, err = readVersion(db)
	if err != nil {
		return 0, err
	}
	for _, m := range Migrations {
		if m.Version <= openedAt {
			continue
		}
		for _, stmt := range m.DDL {
			if _, err := db.Exec(stmt); err != nil {
				return openedAt, fmt.Errorf("schema migration v%d: %w", m.Version, err)
			}
		}
	}
	if err := writeVersion(db, CurrentVersion); err != nil {
		return openedAt, err
	}
	return openedAt, nil
}

// readVersion returns 0 (treated as "brand new") whenever magellan_meta
// doesn't exist yet, its schema_version row is absent, or its value isn't a
// well-formed integer — all three describe the same "nothing to carry
// forward" case from EnsureSchema's point of view.
func readVersion(db *sql.DB) (int, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM magellan_meta WHERE key = 'schema_version'`).Scan(&value)
	if err != nil {
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, nil
	}
	return v, nil
}

func writeVersion(db *sql.DB, v int) error {
	_, err := db.Exec(
		`INSERT INTO magellan_meta(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(v),
	)
	return err
}
