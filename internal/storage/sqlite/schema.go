package sqlite

// schema is applied once, by migration 1, inside the single schema-creating
// transaction. Later migrations alter it forward; schema_version tracks how
// far a given database file has been brought. FTS5 and the embeddings table
// are created here too — cosine distance is computed by the vec_distance_cosine
// scalar function registered on every connection (see vecfunc.go), not by a
// sqlite-vec virtual table, because the pure-Go ncruces/go-sqlite3 driver this
// store uses has no CGo path to that extension .
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'text',
	tier TEXT NOT NULL DEFAULT 'long_term',
	tags TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	agent_id TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME,
	importance_score REAL NOT NULL DEFAULT 0.5,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at DATETIME,
	consolidated_from TEXT NOT NULL DEFAULT '[]',
	namespace TEXT NOT NULL DEFAULT 'default',
	schema_id TEXT DEFAULT '',
	structured_content TEXT NOT NULL DEFAULT '{}',
	version INTEGER NOT NULL DEFAULT 1,
	CHECK (importance_score >= 0 AND importance_score <= 1),
	CHECK (version >= 1)
);

CREATE INDEX IF NOT EXISTS idx_memories_namespace ON memories(namespace);
CREATE INDEX IF NOT EXISTS idx_memories_tier ON memories(tier);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_expires_at ON memories(expires_at);
CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance_score);
CREATE INDEX IF NOT EXISTS idx_memories_schema ON memories(schema_id);

CREATE TABLE IF NOT EXISTS embeddings (
	memory_id TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
	vector BLOB NOT NULL,
	dims INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	content,
	content='memories',
	content_rowid='rowid',
	tokenize='unicode61'
);

CREATE TABLE IF NOT EXISTS memory_access_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	access_type TEXT NOT NULL,
	accessed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_access_log_lookup ON memory_access_log(memory_id, access_type, accessed_at);

CREATE TABLE IF NOT EXISTS memory_links (
	source_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	link_type TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	strength REAL NOT NULL DEFAULT 0.5,
	cascade_on_update INTEGER NOT NULL DEFAULT 0,
	cascade_on_delete INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(source_id, target_id, link_type),
	CHECK (strength >= 0 AND strength <= 1),
	CHECK (source_id != target_id)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON memory_links(source_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON memory_links(target_id);

CREATE TABLE IF NOT EXISTS dependency_notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	notification_type TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	processed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_target ON dependency_notifications(target_id, processed_at);

CREATE TABLE IF NOT EXISTS memory_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	version INTEGER NOT NULL,
	content TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	content_type TEXT NOT NULL,
	change_reason TEXT DEFAULT '',
	captured_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_versions_memory ON memory_versions(memory_id, version DESC);

CREATE TABLE IF NOT EXISTS memory_schemas (
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	fields TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, name)
);

CREATE TABLE IF NOT EXISTS decay_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	enabled INTEGER NOT NULL DEFAULT 1,
	threshold REAL NOT NULL DEFAULT 0.2,
	grace_period_days INTEGER NOT NULL DEFAULT 30,
	max_delete_per_run INTEGER NOT NULL DEFAULT 100,
	last_run_at DATETIME
);

CREATE TABLE IF NOT EXISTS decay_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	dry_run INTEGER NOT NULL DEFAULT 0,
	deleted_ids TEXT NOT NULL DEFAULT '[]',
	failed_ids TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS knowledge_documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS knowledge_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES knowledge_documents(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	section_path TEXT NOT NULL DEFAULT '[]',
	has_previous INTEGER NOT NULL DEFAULT 0,
	has_next INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON knowledge_chunks(document_id, chunk_index);

CREATE TABLE IF NOT EXISTS chunk_embeddings (
	chunk_id TEXT PRIMARY KEY REFERENCES knowledge_chunks(id) ON DELETE CASCADE,
	vector BLOB NOT NULL,
	dims INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen_at DATETIME
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	from_agent TEXT NOT NULL DEFAULT '',
	to_agent TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	read_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_messages_to_agent ON messages(to_agent, read_at);

CREATE TABLE IF NOT EXISTS shared_contexts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	namespace TEXT NOT NULL DEFAULT 'default',
	memory_ids TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(namespace, name)
);

-- Keep memories_fts in sync with memories content.
CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
	INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE OF content ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`
