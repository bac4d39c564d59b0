package backend

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/magellan-go/internal/errors"
	"github.com/oldnordic/magellan-go/internal/schema"
	"github.com/oldnordic/magellan-go/internal/types"
)

// CurrentRelationalSchemaVersion re-exports schema.CurrentVersion: the
// magellan_meta schema_version this build writes and expects (spec §6).
const CurrentRelationalSchemaVersion = schema.CurrentVersion

// RelationalBackend is the SQLite-backed Backend implementation (spec §4.1).
// modernc.org/sqlite is a cgo-free port of SQLite; the teacher's own module
// never vendors a relational store, so this dependency is grounded on
// sibling example repos that use the same package for an embedded store.
type RelationalBackend struct {
	db       *sql.DB
	path     string
	openedAt int        // magellan_schema_version found before EnsureSchema ran; 0 for a brand-new database
	mu       sync.Mutex // serializes writers; SQLite tolerates one writer at a time
}

// OpenRelationalBackend opens (creating if absent) a SQLite database at path
// and carries its schema forward to schema.CurrentVersion via
// internal/schema's versioned migrations. It does not itself decide whether
// the version found is an acceptable upgrade source — that policy is
// internal/migrate's (spec §6's "specific upgrade rules per version pair"),
// applied by the caller against OpenedAtVersion before trusting the result.
func OpenRelationalBackend(path string) (*RelationalBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewBackendError("open", err)
	}
	db.SetMaxOpenConns(1)

	openedAt, err := schema.EnsureSchema(db)
	if err != nil {
		db.Close()
		return nil, errors.NewBackendError("migrate", err)
	}

	return &RelationalBackend{db: db, path: path, openedAt: openedAt}, nil
}

// OpenedAtVersion returns the magellan_schema_version this database was at
// before OpenRelationalBackend's migration pass ran (0 for a freshly
// created database).
func (b *RelationalBackend) OpenedAtVersion() int {
	return b.openedAt
}

func (b *RelationalBackend) SharedConnPath() (string, bool) {
	return b.path, true
}

func (b *RelationalBackend) InsertNode(kind types.NodeKind, name, filePath string, data []byte) (types.EntityId, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.db.Exec(
		`INSERT INTO graph_entities(kind, name, file_path, unique_key, data) VALUES (?, ?, ?, NULL, ?)`,
		string(kind), name, filePath, data,
	)
	if err != nil {
		return 0, errors.NewBackendError("insert-node", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.NewBackendError("insert-node-id", err)
	}
	return types.EntityId(id), nil
}

func (b *RelationalBackend) UpsertNodeByKindAndName(kind types.NodeKind, name, filePath, uniqueKey string, data []byte) (types.EntityId, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var id int64
	row := b.db.QueryRow(
		`INSERT INTO graph_entities(kind, name, file_path, unique_key, data) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(kind, file_path, unique_key) DO UPDATE SET name = excluded.name, data = excluded.data
		 RETURNING id`,
		string(kind), name, filePath, uniqueKey, data,
	)
	if err := row.Scan(&id); err != nil {
		return 0, errors.NewBackendError("upsert-node", err)
	}
	return types.EntityId(id), nil
}

func (b *RelationalBackend) InsertEdge(from, to types.EntityId, edgeType types.EdgeType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.Exec(
		`INSERT INTO graph_edges(from_id, to_id, edge_type) VALUES (?, ?, ?)`,
		int64(from), int64(to), string(edgeType),
	)
	if err != nil {
		return errors.NewBackendError("insert-edge", err)
	}
	return nil
}

func (b *RelationalBackend) DeleteNode(id types.EntityId) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.Begin()
	if err != nil {
		return errors.NewBackendError("delete-node-begin", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM graph_entities WHERE id = ?`, int64(id))
	if err != nil {
		return errors.NewBackendError("delete-node", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("entity", "node")
	}
	if _, err := tx.Exec(`DELETE FROM graph_edges WHERE from_id = ? OR to_id = ?`, int64(id), int64(id)); err != nil {
		return errors.NewBackendError("delete-node-edges", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewBackendError("delete-node-commit", err)
	}
	return nil
}

func (b *RelationalBackend) GetNode(_ types.SnapshotID, id types.EntityId) (types.NodeRecord, error) {
	row := b.db.QueryRow(`SELECT kind, name, file_path, data FROM graph_entities WHERE id = ?`, int64(id))
	var kind, name, filePath string
	var data []byte
	if err := row.Scan(&kind, &name, &filePath, &data); err != nil {
		if err == sql.ErrNoRows {
			return types.NodeRecord{}, errors.NewNotFoundError("entity", "node")
		}
		return types.NodeRecord{}, errors.NewBackendError("get-node", err)
	}
	return types.NodeRecord{ID: id, Kind: types.NodeKind(kind), Name: name, FilePath: filePath, Data: data}, nil
}

func (b *RelationalBackend) Neighbors(_ types.SnapshotID, id types.EntityId, q types.NeighborQuery) ([]NeighborEdge, error) {
	var rows *sql.Rows
	var err error

	switch q.Direction {
	case types.Outgoing:
		if q.EdgeType != nil {
			rows, err = b.db.Query(`SELECT edge_type, to_id FROM graph_edges WHERE from_id = ? AND edge_type = ?`, int64(id), string(*q.EdgeType))
		} else {
			rows, err = b.db.Query(`SELECT edge_type, to_id FROM graph_edges WHERE from_id = ?`, int64(id))
		}
	case types.Incoming:
		if q.EdgeType != nil {
			rows, err = b.db.Query(`SELECT edge_type, from_id FROM graph_edges WHERE to_id = ? AND edge_type = ?`, int64(id), string(*q.EdgeType))
		} else {
			rows, err = b.db.Query(`SELECT edge_type, from_id FROM graph_edges WHERE to_id = ?`, int64(id))
		}
	default:
		if q.EdgeType != nil {
			rows, err = b.db.Query(
				`SELECT edge_type, to_id FROM graph_edges WHERE from_id = ? AND edge_type = ?
				 UNION ALL
				 SELECT edge_type, from_id FROM graph_edges WHERE to_id = ? AND edge_type = ?`,
				int64(id), string(*q.EdgeType), int64(id), string(*q.EdgeType))
		} else {
			rows, err = b.db.Query(
				`SELECT edge_type, to_id FROM graph_edges WHERE from_id = ?
				 UNION ALL
				 SELECT edge_type, from_id FROM graph_edges WHERE to_id = ?`,
				int64(id), int64(id))
		}
	}
	if err != nil {
		return nil, errors.NewBackendError("neighbors", err)
	}
	defer rows.Close()

	var result []NeighborEdge
	for rows.Next() {
		var edgeType string
		var other int64
		if err := rows.Scan(&edgeType, &other); err != nil {
			return nil, errors.NewBackendError("neighbors-scan", err)
		}
		result = append(result, NeighborEdge{EdgeType: types.EdgeType(edgeType), OtherID: types.EntityId(other)})
	}
	return result, rows.Err()
}

func (b *RelationalBackend) EntityIDs() ([]types.EntityId, error) {
	rows, err := b.db.Query(`SELECT id FROM graph_entities ORDER BY id`)
	if err != nil {
		return nil, errors.NewBackendError("entity-ids", err)
	}
	defer rows.Close()

	var ids []types.EntityId
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewBackendError("entity-ids-scan", err)
		}
		ids = append(ids, types.EntityId(id))
	}
	return ids, rows.Err()
}

func (b *RelationalBackend) KVGet(key []byte) ([]byte, bool, error) {
	row := b.db.QueryRow(`SELECT value, expires_at FROM side_kv WHERE key = ?`, key)
	var value []byte
	var expiresAt sql.NullInt64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, errors.NewBackendError("kv-get", err)
	}
	if expiresAt.Valid && time.Now().UnixNano() > expiresAt.Int64 {
		return nil, false, nil
	}
	return value, true, nil
}

func (b *RelationalBackend) KVSet(key, value []byte, ttl *time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expires sql.NullInt64
	if ttl != nil {
		expires = sql.NullInt64{Int64: time.Now().Add(*ttl).UnixNano(), Valid: true}
	}
	_, err := b.db.Exec(
		`INSERT INTO side_kv(key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expires,
	)
	if err != nil {
		return errors.NewBackendError("kv-set", err)
	}
	return nil
}

func (b *RelationalBackend) KVPrefixScan(_ types.SnapshotID, prefix []byte) ([]KVPair, error) {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	upper = append(upper, 0xff)

	rows, err := b.db.Query(`SELECT key, value, expires_at FROM side_kv WHERE key >= ? AND key <= ? ORDER BY key`, prefix, upper)
	if err != nil {
		return nil, errors.NewBackendError("kv-prefix-scan", err)
	}
	defer rows.Close()

	now := time.Now().UnixNano()
	var result []KVPair
	for rows.Next() {
		var key, value []byte
		var expiresAt sql.NullInt64
		if err := rows.Scan(&key, &value, &expiresAt); err != nil {
			return nil, errors.NewBackendError("kv-prefix-scan-scan", err)
		}
		if expiresAt.Valid && now > expiresAt.Int64 {
			continue
		}
		result = append(result, KVPair{Key: key, Value: value})
	}
	return result, rows.Err()
}

func (b *RelationalBackend) SnapshotCurrent() (types.SnapshotID, error) {
	row := b.db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM graph_entities`)
	var max int64
	if err := row.Scan(&max); err != nil {
		return 0, errors.NewBackendError("snapshot-current", err)
	}
	return types.SnapshotID(max), nil
}

func (b *RelationalBackend) Close() error {
	return b.db.Close()
}

// InsertChunk implements chunkstore.TableBackend directly against the
// code_chunks table (spec §4.5's relational mode), rather than routing
// through the generic KV namespace.
func (b *RelationalBackend) InsertChunk(chunk types.CodeChunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.Exec(
		`INSERT INTO code_chunks(file_path, byte_start, byte_end, content, content_hash, symbol_name, symbol_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_path, byte_start, byte_end) DO UPDATE SET
			content = excluded.content, content_hash = excluded.content_hash,
			symbol_name = excluded.symbol_name, symbol_kind = excluded.symbol_kind,
			created_at = excluded.created_at`,
		chunk.FilePath, chunk.ByteStart, chunk.ByteEnd, chunk.Content, chunk.ContentHash,
		chunk.SymbolName, chunk.SymbolKind, chunk.CreatedAt.UnixNano(),
	)
	if err != nil {
		return errors.NewBackendError("insert-chunk", err)
	}
	return nil
}

func (b *RelationalBackend) GetChunk(path string, start, end uint32) (types.CodeChunk, bool, error) {
	row := b.db.QueryRow(
		`SELECT content, content_hash, symbol_name, symbol_kind, created_at FROM code_chunks
		 WHERE file_path = ? AND byte_start = ? AND byte_end = ?`,
		path, start, end,
	)
	var content []byte
	var contentHash string
	var symbolName, symbolKind sql.NullString
	var createdAt int64
	if err := row.Scan(&content, &contentHash, &symbolName, &symbolKind, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return types.CodeChunk{}, false, nil
		}
		return types.CodeChunk{}, false, errors.NewBackendError("get-chunk", err)
	}
	return types.CodeChunk{
		FilePath: path, ByteStart: start, ByteEnd: end, Content: content, ContentHash: contentHash,
		SymbolName: symbolName.String, SymbolKind: symbolKind.String,
		CreatedAt: time.Unix(0, createdAt),
	}, true, nil
}

func (b *RelationalBackend) ChunksForFile(path string) ([]types.CodeChunk, error) {
	rows, err := b.db.Query(
		`SELECT byte_start, byte_end, content, content_hash, symbol_name, symbol_kind, created_at FROM code_chunks
		 WHERE file_path = ? ORDER BY byte_start`,
		path,
	)
	if err != nil {
		return nil, errors.NewBackendError("chunks-for-file", err)
	}
	defer rows.Close()

	var chunks []types.CodeChunk
	for rows.Next() {
		var start, end uint32
		var content []byte
		var contentHash string
		var symbolName, symbolKind sql.NullString
		var createdAt int64
		if err := rows.Scan(&start, &end, &content, &contentHash, &symbolName, &symbolKind, &createdAt); err != nil {
			return nil, errors.NewBackendError("chunks-for-file-scan", err)
		}
		chunks = append(chunks, types.CodeChunk{
			FilePath: path, ByteStart: start, ByteEnd: end, Content: content, ContentHash: contentHash,
			SymbolName: symbolName.String, SymbolKind: symbolKind.String,
			CreatedAt: time.Unix(0, createdAt),
		})
	}
	return chunks, rows.Err()
}

// InsertExecutionRecord implements execlog.TableBackend directly against
// the execution_log table, mirroring InsertChunk's relational-mode shape.
func (b *RelationalBackend) InsertExecutionRecord(rec types.ExecutionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	args, err := json.Marshal(rec.Args)
	if err != nil {
		return errors.NewBackendError("insert-execution-record-args", err)
	}
	var finishedAt sql.NullInt64
	if !rec.FinishedAt.IsZero() {
		finishedAt = sql.NullInt64{Int64: rec.FinishedAt.UnixNano(), Valid: true}
	}

	_, err = b.db.Exec(
		`INSERT INTO execution_log(execution_id, tool_version, args, root, database_path,
			started_at, finished_at, outcome, error_message, file_count, symbol_count, reference_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(execution_id) DO UPDATE SET
			finished_at = excluded.finished_at, outcome = excluded.outcome,
			error_message = excluded.error_message, file_count = excluded.file_count,
			symbol_count = excluded.symbol_count, reference_count = excluded.reference_count`,
		rec.ExecutionID, rec.ToolVersion, string(args), rec.Root, rec.DatabasePath,
		rec.StartedAt.UnixNano(), finishedAt, rec.Outcome, rec.ErrorMessage,
		rec.FileCount, rec.SymbolCount, rec.ReferenceCount,
	)
	if err != nil {
		return errors.NewBackendError("insert-execution-record", err)
	}
	return nil
}

func (b *RelationalBackend) GetExecutionRecord(execID string) (types.ExecutionRecord, bool, error) {
	row := b.db.QueryRow(
		`SELECT tool_version, args, root, database_path, started_at, finished_at,
			outcome, error_message, file_count, symbol_count, reference_count
		 FROM execution_log WHERE execution_id = ?`,
		execID,
	)
	var rec types.ExecutionRecord
	rec.ExecutionID = execID
	var args string
	var started int64
	var finished sql.NullInt64
	var errMsg sql.NullString
	if err := row.Scan(&rec.ToolVersion, &args, &rec.Root, &rec.DatabasePath, &started, &finished,
		&rec.Outcome, &errMsg, &rec.FileCount, &rec.SymbolCount, &rec.ReferenceCount); err != nil {
		if err == sql.ErrNoRows {
			return types.ExecutionRecord{}, false, nil
		}
		return types.ExecutionRecord{}, false, errors.NewBackendError("get-execution-record", err)
	}
	if err := json.Unmarshal([]byte(args), &rec.Args); err != nil {
		return types.ExecutionRecord{}, false, errors.NewBackendError("get-execution-record-args", err)
	}
	rec.StartedAt = time.Unix(0, started)
	if finished.Valid {
		rec.FinishedAt = time.Unix(0, finished.Int64)
	}
	rec.ErrorMessage = errMsg.String
	return rec, true, nil
}

// marshalJSON is an unexported json.Marshal wrapper for values stored in
// graph_entities.data. Nothing calls it at present; internal/ingest uses
// its own marshalJSONAny.
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
