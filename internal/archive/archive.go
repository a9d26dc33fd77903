// Package archive implements a line-delimited JSON export/import format:
// one metadata line followed by one record per line, replace/merge import
// modes, and skip/update/error conflict policies. Export writes to a temp
// file and renames it into place so a crash mid-write never leaves a
// half-written archive at the destination path.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/pathvalidate"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

// SchemaVersion is the current archive format version. Import rejects
// any archive whose metadata line carries a higher version.
const SchemaVersion = 1

// recordType discriminates archive record lines.
type recordType string

const (
	recordMemory            recordType = "memory"
	recordKnowledgeDocument recordType = "knowledge_document"
	recordKnowledgeChunk    recordType = "knowledge_chunk"
	recordAgent             recordType = "agent"
	recordMessage           recordType = "message"
	recordMemoryLink        recordType = "memory_link"
	recordDecayConfig       recordType = "decay_config"
)

// Mode selects how import reconciles the archive against existing data.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeMerge   Mode = "merge"
)

// ConflictPolicy controls what merge mode does when a record's id already
// exists.
type ConflictPolicy string

const (
	PolicySkip   ConflictPolicy = "skip"
	PolicyUpdate ConflictPolicy = "update"
	PolicyError  ConflictPolicy = "error"
)

func (p ConflictPolicy) valid() bool {
	switch p {
	case PolicySkip, PolicyUpdate, PolicyError:
		return true
	}
	return false
}

// metadataLine is always the archive's first line.
type metadataLine struct {
	SchemaVersion int            `json:"schema_version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Counts        map[string]int `json:"counts"`
}

type typedLine struct {
	Type recordType `json:"type"`
}

type memoryRecord struct {
	Type recordType `json:"type"`
	types.Entry
	Embedding []float32 `json:"embedding,omitempty"`
}

type documentRecord struct {
	Type recordType `json:"type"`
	types.KnowledgeDocument
}

type chunkRecord struct {
	Type recordType `json:"type"`
	types.KnowledgeChunk
	Embedding []float32 `json:"embedding,omitempty"`
}

type agentRecord struct {
	Type recordType `json:"type"`
	types.Agent
}

type messageRecord struct {
	Type recordType `json:"type"`
	types.Message
}

type linkRecord struct {
	Type recordType `json:"type"`
	types.Link
}

type decayConfigRecord struct {
	Type recordType `json:"type"`
	types.DecayConfig
}

// Summary reports how many records of each type were written or applied.
type Summary struct {
	Counts map[string]int
}

// Export streams every memory, knowledge document/chunk, agent, message,
// link, and the decay config to destPath as line-delimited JSON. Records are
// written to a scratch temp file first (so the total counts are known),
// then a second temp file holding the metadata line plus the records is
// renamed into place atomically. destPath must resolve within
// baseDir (or one of allowDirs).
func Export(ctx context.Context, store storage.Storage, destPath, baseDir string, allowDirs ...string) (*Summary, error) {
	resolved, err := pathvalidate.Resolve(destPath, baseDir, allowDirs...)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, types.Dependencyf(err, "create archive directory")
	}

	recordsPath := fmt.Sprintf("%s.records.%d", resolved, os.Getpid())
	counts, err := writeRecords(ctx, store, recordsPath)
	if err != nil {
		os.Remove(recordsPath)
		return nil, err
	}
	defer os.Remove(recordsPath)

	if err := assembleArchive(recordsPath, resolved, counts); err != nil {
		return nil, err
	}
	return &Summary{Counts: counts}, nil
}

func writeRecords(ctx context.Context, store storage.Storage, path string) (map[string]int, error) {
	f, err := os.Create(path) // #nosec G304 -- path is our own derived scratch file
	if err != nil {
		return nil, types.Dependencyf(err, "create archive scratch file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	counts := map[string]int{}

	entries, _, err := store.ListEntries(ctx, types.ListFilters{SearchScope: types.ScopeAll, Limit: 0})
	if err != nil {
		return nil, types.Storagef(err, "list entries for export")
	}
	for _, e := range entries {
		vec, err := store.GetEmbedding(ctx, e.ID)
		if err != nil {
			return nil, types.Storagef(err, "get embedding for export")
		}
		if err := enc.Encode(memoryRecord{Type: recordMemory, Entry: *e, Embedding: vec}); err != nil {
			return nil, types.Dependencyf(err, "encode memory record")
		}
		counts[string(recordMemory)]++
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return nil, types.Storagef(err, "list documents for export")
	}
	for _, d := range docs {
		if err := enc.Encode(documentRecord{Type: recordKnowledgeDocument, KnowledgeDocument: *d}); err != nil {
			return nil, types.Dependencyf(err, "encode document record")
		}
		counts[string(recordKnowledgeDocument)]++

		chunks, err := store.GetChunks(ctx, d.ID)
		if err != nil {
			return nil, types.Storagef(err, "get chunks for export")
		}
		for _, c := range chunks {
			vec, err := store.GetChunkEmbedding(ctx, c.ID)
			if err != nil {
				return nil, types.Storagef(err, "get chunk embedding for export")
			}
			if err := enc.Encode(chunkRecord{Type: recordKnowledgeChunk, KnowledgeChunk: *c, Embedding: vec}); err != nil {
				return nil, types.Dependencyf(err, "encode chunk record")
			}
			counts[string(recordKnowledgeChunk)]++
		}
	}

	agents, err := store.ListAgents(ctx)
	if err != nil {
		return nil, types.Storagef(err, "list agents for export")
	}
	for _, a := range agents {
		if err := enc.Encode(agentRecord{Type: recordAgent, Agent: *a}); err != nil {
			return nil, types.Dependencyf(err, "encode agent record")
		}
		counts[string(recordAgent)]++
	}

	messages, err := store.ListAllMessages(ctx)
	if err != nil {
		return nil, types.Storagef(err, "list messages for export")
	}
	for _, m := range messages {
		if err := enc.Encode(messageRecord{Type: recordMessage, Message: *m}); err != nil {
			return nil, types.Dependencyf(err, "encode message record")
		}
		counts[string(recordMessage)]++
	}

	links, err := store.GetAllLinks(ctx, "")
	if err != nil {
		return nil, types.Storagef(err, "list links for export")
	}
	for _, l := range links {
		if err := enc.Encode(linkRecord{Type: recordMemoryLink, Link: *l}); err != nil {
			return nil, types.Dependencyf(err, "encode link record")
		}
		counts[string(recordMemoryLink)]++
	}

	decayCfg, err := store.GetDecayConfig(ctx)
	if err != nil {
		return nil, types.Storagef(err, "get decay config for export")
	}
	if decayCfg != nil {
		if err := enc.Encode(decayConfigRecord{Type: recordDecayConfig, DecayConfig: *decayCfg}); err != nil {
			return nil, types.Dependencyf(err, "encode decay config record")
		}
		counts[string(recordDecayConfig)]++
	}

	return counts, nil
}

// assembleArchive writes the metadata line followed by the already-written
// records into a second temp file, then renames it into place atomically.
func assembleArchive(recordsPath, finalPath string, counts map[string]int) error {
	tmp := fmt.Sprintf("%s.tmp.%d", finalPath, os.Getpid())
	out, err := os.Create(tmp) // #nosec G304 -- tmp derived from a validated destination path
	if err != nil {
		return types.Dependencyf(err, "create final archive file")
	}
	defer os.Remove(tmp)

	if err := json.NewEncoder(out).Encode(metadataLine{
		SchemaVersion: SchemaVersion, ExportedAt: time.Now().UTC(), Counts: counts,
	}); err != nil {
		out.Close()
		return types.Dependencyf(err, "encode archive metadata")
	}

	records, err := os.Open(recordsPath) // #nosec G304 -- recordsPath is our own scratch file
	if err != nil {
		out.Close()
		return types.Dependencyf(err, "reopen records scratch file")
	}
	_, copyErr := io.Copy(out, records)
	records.Close()
	if copyErr != nil {
		out.Close()
		return types.Dependencyf(copyErr, "append archive records")
	}
	if err := out.Close(); err != nil {
		return types.Dependencyf(err, "close final archive file")
	}

	if err := os.Rename(tmp, finalPath); err != nil {
		return types.Dependencyf(err, "rename archive into place")
	}
	return nil
}

// Import reads an archive written by Export and applies it to store. In
// replace mode, every main table is wiped in one transaction before records
// are applied. In merge mode, each record's id is checked against existing
// data and policy decides the outcome. regenerateEmbeddings recomputes every
// embedding from content via embedder instead of trusting the archive's own
// vectors.
func Import(ctx context.Context, store storage.Storage, embedder embedding.Provider, srcPath, baseDir string, mode Mode, policy ConflictPolicy, regenerateEmbeddings bool, allowDirs ...string) (*Summary, error) {
	if !policy.valid() {
		return nil, types.Validationf("invalid conflict policy %q", policy)
	}
	resolved, err := pathvalidate.Resolve(srcPath, baseDir, allowDirs...)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(resolved) // #nosec G304 -- resolved validated by pathvalidate.Resolve
	if err != nil {
		return nil, types.Dependencyf(err, "open archive")
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	var meta metadataLine
	if err := dec.Decode(&meta); err != nil {
		return nil, types.Validationf("read archive metadata: %v", err)
	}
	if meta.SchemaVersion > SchemaVersion {
		return nil, types.Validationf("archive schema_version %d is newer than supported version %d", meta.SchemaVersion, SchemaVersion)
	}

	if mode == ModeReplace {
		if err := store.Wipe(ctx); err != nil {
			return nil, types.Storagef(err, "wipe before replace import")
		}
	}

	counts := map[string]int{}
	skippedDocs := map[string]bool{}
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, types.Validationf("read archive record: %v", err)
		}

		var tl typedLine
		if err := json.Unmarshal(raw, &tl); err != nil {
			return nil, types.Validationf("read archive record type: %v", err)
		}

		if err := applyRecord(ctx, store, embedder, tl.Type, raw, policy, regenerateEmbeddings, skippedDocs); err != nil {
			if types.IsKind(err, types.KindConflict) && policy != PolicyError {
				continue
			}
			return nil, err
		}
		counts[string(tl.Type)]++
	}

	return &Summary{Counts: counts}, nil
}

func applyRecord(ctx context.Context, store storage.Storage, embedder embedding.Provider, t recordType, raw json.RawMessage, policy ConflictPolicy, regenerateEmbeddings bool, skippedDocs map[string]bool) error {
	switch t {
	case recordMemory:
		var rec memoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode memory record: %v", err)
		}
		return applyMemory(ctx, store, embedder, rec, policy, regenerateEmbeddings)
	case recordKnowledgeDocument:
		var rec documentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode document record: %v", err)
		}
		return applyDocument(ctx, store, rec, policy, skippedDocs)
	case recordKnowledgeChunk:
		var rec chunkRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode chunk record: %v", err)
		}
		if skippedDocs[rec.DocumentID] {
			return nil
		}
		return applyChunk(ctx, store, embedder, rec, regenerateEmbeddings)
	case recordAgent:
		var rec agentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode agent record: %v", err)
		}
		return store.UpsertAgent(ctx, &rec.Agent)
	case recordMessage:
		var rec messageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode message record: %v", err)
		}
		return store.CreateMessage(ctx, &rec.Message)
	case recordMemoryLink:
		var rec linkRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode link record: %v", err)
		}
		return store.CreateLink(ctx, &rec.Link)
	case recordDecayConfig:
		var rec decayConfigRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Validationf("decode decay config record: %v", err)
		}
		return store.PutDecayConfig(ctx, &rec.DecayConfig)
	default:
		return types.Validationf("unknown archive record type %q", t)
	}
}

func applyMemory(ctx context.Context, store storage.Storage, embedder embedding.Provider, rec memoryRecord, policy ConflictPolicy, regenerateEmbeddings bool) error {
	existing, err := store.GetEntry(ctx, rec.ID)
	if err != nil {
		return types.Storagef(err, "check existing entry")
	}
	if existing != nil {
		switch policy {
		case PolicySkip:
			return nil
		case PolicyError:
			return types.Conflictf("entry %s already exists", rec.ID)
		}
	}

	vec := rec.Embedding
	if regenerateEmbeddings || vec == nil {
		vec, err = embedder.Embed(ctx, rec.Content, false)
		if err != nil {
			return types.Dependencyf(err, "regenerate embedding for %s", rec.ID)
		}
	}

	e := rec.Entry
	return store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if existing != nil {
			return applyMemoryUpdate(ctx, tx, &e, vec)
		}
		if err := tx.CreateEntry(ctx, &e); err != nil {
			return types.Storagef(err, "create imported entry")
		}
		return tx.PutEmbedding(ctx, e.ID, vec)
	})
}

func applyMemoryUpdate(ctx context.Context, tx storage.Transaction, e *types.Entry, vec []float32) error {
	fields := map[string]any{
		"content": e.Content, "content_type": string(e.ContentType), "tier": string(e.Tier),
		"tags": e.Tags, "metadata": e.Metadata, "agent_id": e.AgentID, "updated_at": e.UpdatedAt,
		"expires_at": e.ExpiresAt, "importance_score": e.ImportanceScore, "access_count": e.AccessCount,
		"last_accessed_at": e.LastAccessedAt, "consolidated_from": e.ConsolidatedFrom, "namespace": e.Namespace,
		"schema_id": e.SchemaID, "structured_content": e.StructuredContent, "version": e.Version,
	}
	if err := tx.UpdateEntry(ctx, e.ID, fields); err != nil {
		return types.Storagef(err, "update imported entry")
	}
	return tx.PutEmbedding(ctx, e.ID, vec)
}

func applyDocument(ctx context.Context, store storage.Storage, rec documentRecord, policy ConflictPolicy, skippedDocs map[string]bool) error {
	existing, err := store.GetDocument(ctx, rec.ID)
	if err != nil {
		return types.Storagef(err, "check existing document")
	}
	if existing != nil {
		switch policy {
		case PolicySkip:
			skippedDocs[rec.ID] = true
			return nil
		case PolicyError:
			return types.Conflictf("document %s already exists", rec.ID)
		case PolicyUpdate:
			if err := store.DeleteDocument(ctx, rec.ID); err != nil {
				return types.Storagef(err, "replace existing document")
			}
		}
	}
	d := rec.KnowledgeDocument
	return store.CreateDocument(ctx, &d)
}

func applyChunk(ctx context.Context, store storage.Storage, embedder embedding.Provider, rec chunkRecord, regenerateEmbeddings bool) error {
	c := rec.KnowledgeChunk
	if err := store.CreateChunks(ctx, []*types.KnowledgeChunk{&c}); err != nil {
		return types.Storagef(err, "create imported chunk")
	}
	vec := rec.Embedding
	if regenerateEmbeddings || vec == nil {
		var err error
		vec, err = embedder.Embed(ctx, c.Content, false)
		if err != nil {
			return types.Dependencyf(err, "regenerate chunk embedding")
		}
	}
	if err := store.PutChunkEmbedding(ctx, c.ID, vec); err != nil {
		return types.Storagef(err, "put imported chunk embedding")
	}
	return nil
}
