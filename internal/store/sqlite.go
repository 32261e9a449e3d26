package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/agentmem/tempora/internal/model"
)

// SQLiteStore implements Store using SQLite. Embedding vectors are stored
// as little-endian float32 blobs alongside the row; nearest-neighbor
// ranking happens in the recall path over the filtered candidate set.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		metadata    TEXT,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		id                TEXT PRIMARY KEY,
		agent_id          TEXT NOT NULL REFERENCES agents(id),
		layer1            TEXT NOT NULL,
		layer2            TEXT NOT NULL,
		layer3            TEXT NOT NULL,
		layer1_embedding  BLOB,
		layer2_embedding  BLOB,
		tags              TEXT,
		memory_type       TEXT NOT NULL DEFAULT 'facts',
		temporal_layer    TEXT NOT NULL DEFAULT 'working',
		status            TEXT NOT NULL DEFAULT 'active',
		importance_score  REAL NOT NULL DEFAULT 0.5,
		domain            TEXT,
		source_type       TEXT,
		created_at        TEXT NOT NULL,
		expires_at        TEXT,
		last_accessed     TEXT,
		access_count      INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_memories_agent_status ON memories(agent_id, status);
	CREATE INDEX IF NOT EXISTS idx_memories_agent_layer ON memories(agent_id, temporal_layer);
	CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires_at);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);

	CREATE TABLE IF NOT EXISTS access_log (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id        TEXT NOT NULL REFERENCES memories(id),
		agent_id         TEXT NOT NULL,
		layer_accessed   INTEGER NOT NULL,
		query_text       TEXT,
		relevance_score  REAL,
		accessed_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_access_memory ON access_log(memory_id);

	CREATE TABLE IF NOT EXISTS review_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id   TEXT NOT NULL REFERENCES memories(id),
		decision    TEXT NOT NULL,
		old_layer   TEXT NOT NULL,
		new_layer   TEXT NOT NULL,
		reason      TEXT,
		decided_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_review_memory ON review_log(memory_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// EnsureAgent upserts an agent by name and returns its id.
func (s *SQLiteStore) EnsureAgent(ctx context.Context, name string) (string, error) {
	id := s.newID()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (id, name, metadata, created_at) VALUES (?, ?, '{}', ?)
		 ON CONFLICT(name) DO NOTHING`, id, name, now)
	if err != nil {
		return "", fmt.Errorf("upsert agent: %w", err)
	}

	var agentID string
	err = s.db.QueryRowContext(ctx, `SELECT id FROM agents WHERE name = ?`, name).Scan(&agentID)
	if err != nil {
		return "", fmt.Errorf("resolve agent: %w", err)
	}
	return agentID, nil
}

// AgentID resolves an agent name, returning "" when it does not exist.
func (s *SQLiteStore) AgentID(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM agents WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Insert persists one new memory row.
func (s *SQLiteStore) Insert(ctx context.Context, p InsertParams) (*model.Memory, error) {
	now := time.Now().UTC()
	id := s.newID()

	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		str := string(b)
		tagsJSON = &str
	}

	var expiresAt *string
	if p.ExpiresAt != nil {
		exp := p.ExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &exp
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (
			id, agent_id, layer1, layer2, layer3,
			layer1_embedding, layer2_embedding, tags,
			memory_type, temporal_layer, status, importance_score,
			domain, source_type, created_at, expires_at, access_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?, ?, ?, ?, ?, 0)`,
		id, p.AgentID, p.Layer1, p.Layer2, p.Layer3,
		encodeVector(p.Layer1Embedding), encodeVector(p.Layer2Embedding), tagsJSON,
		p.MemoryType, string(p.TemporalLayer), p.ImportanceScore,
		nullable(p.Domain), nullable(p.SourceType), now.Format(time.RFC3339), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return &model.Memory{
		ID:              id,
		AgentID:         p.AgentID,
		Layer1:          p.Layer1,
		Layer2:          p.Layer2,
		Layer3:          p.Layer3,
		Layer1Embedding: p.Layer1Embedding,
		Layer2Embedding: p.Layer2Embedding,
		Tags:            p.Tags,
		MemoryType:      p.MemoryType,
		TemporalLayer:   p.TemporalLayer,
		Status:          model.StatusActive,
		ImportanceScore: p.ImportanceScore,
		Domain:          p.Domain,
		SourceType:      p.SourceType,
		CreatedAt:       now,
		ExpiresAt:       p.ExpiresAt,
	}, nil
}

const memoryColumns = `id, agent_id, layer1, layer2, layer3,
	layer1_embedding, layer2_embedding, tags,
	memory_type, temporal_layer, status, importance_score,
	domain, source_type, created_at, expires_at, last_accessed, access_count`

// Get returns a memory by id regardless of status.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var emb1, emb2 []byte
	var tagsJSON, domain, sourceType, expiresAt, lastAccessed sql.NullString
	var layer, status, createdAt string

	err := row.Scan(
		&m.ID, &m.AgentID, &m.Layer1, &m.Layer2, &m.Layer3,
		&emb1, &emb2, &tagsJSON,
		&m.MemoryType, &layer, &status, &m.ImportanceScore,
		&domain, &sourceType, &createdAt, &expiresAt, &lastAccessed, &m.AccessCount,
	)
	if err != nil {
		return m, err
	}

	m.TemporalLayer = model.TemporalLayer(layer)
	m.Status = model.Status(status)
	m.Layer1Embedding = decodeVector(emb1)
	m.Layer2Embedding = decodeVector(emb2)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if domain.Valid {
		m.Domain = domain.String
	}
	if sourceType.Valid {
		m.SourceType = sourceType.String
	}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		m.ExpiresAt = &t
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(time.RFC3339, lastAccessed.String)
		m.LastAccessed = &t
	}
	return m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// encodeVector packs a float32 vector as a little-endian blob.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
