// Package knowledge implements document import and chunking by sentence,
// paragraph, and semantic (Markdown-aware) strategy. The heading walker in
// markdown.go is a minimal dependency-free ATX parser, since rendering
// Markdown is a different concern from structural decomposition.
package knowledge

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

var sentenceTerminators = []byte(".!?。！？")

// splitSentences breaks text on a small punctuation set, trimming
// whitespace and dropping empty fragments.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if strings.ContainsRune(string(sentenceTerminators), r) {
			if s := strings.TrimSpace(text[start : i+len(string(r))]); s != "" {
				out = append(out, s)
			}
			start = i + len(string(r))
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// chunkBySentence accumulates sentences until adding the next would exceed
// chunkSize, then emits; each new chunk after the first carries the last
// overlap characters of the previous chunk prepended.
func chunkBySentence(text string, chunkSize, overlap int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var b strings.Builder
	for _, s := range sentences {
		if b.Len() > 0 && b.Len()+1+len(s) > chunkSize {
			chunks = append(chunks, b.String())
			prev := b.String()
			b.Reset()
			if overlap > 0 && len(prev) > 0 {
				tail := prev
				if len(tail) > overlap {
					tail = tail[len(tail)-overlap:]
				}
				b.WriteString(tail)
				b.WriteString(" ")
			}
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// chunkByParagraph splits on blank lines; any paragraph longer than
// chunkSize falls back to the sentence strategy.
func chunkByParagraph(text string, chunkSize, overlap int) []string {
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > chunkSize {
			chunks = append(chunks, chunkBySentence(p, chunkSize, overlap)...)
			continue
		}
		chunks = append(chunks, p)
	}
	return chunks
}

// chunkResult pairs chunked content with its section breadcrumb, nil for
// strategies without heading structure.
type chunkResult struct {
	content     string
	sectionPath []string
}

// chunkBySemantic parses the Markdown heading hierarchy and emits one chunk
// per section carrying its section_path; oversized sections fall back to
// the paragraph strategy.
func chunkBySemantic(text string, chunkSize, overlap int) []chunkResult {
	sections := splitSections(text)
	var out []chunkResult
	for _, sec := range sections {
		if sec.content == "" {
			continue
		}
		if len(sec.content) > chunkSize {
			for _, c := range chunkByParagraph(sec.content, chunkSize, overlap) {
				out = append(out, chunkResult{content: c, sectionPath: sec.path})
			}
			continue
		}
		out = append(out, chunkResult{content: sec.content, sectionPath: sec.path})
	}
	return out
}

// Service orchestrates document import and chunk embedding over a Storage
// backend.
type Service struct {
	store    storage.Storage
	embedder embedding.Provider
}

func New(store storage.Storage, embedder embedding.Provider) *Service {
	return &Service{store: store, embedder: embedder}
}

// Import splits content by strategy, creates the document row, and stores
// one chunk row plus embedding per resulting chunk.
func (s *Service) Import(ctx context.Context, title, source, category string, content string, strategy types.ChunkStrategy, chunkSize, overlap int) (*types.KnowledgeDocument, []*types.KnowledgeChunk, error) {
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	var results []chunkResult
	switch strategy {
	case types.StrategyParagraph:
		for _, c := range chunkByParagraph(content, chunkSize, overlap) {
			results = append(results, chunkResult{content: c})
		}
	case types.StrategySemantic:
		results = chunkBySemantic(content, chunkSize, overlap)
	default:
		for _, c := range chunkBySentence(content, chunkSize, overlap) {
			results = append(results, chunkResult{content: c})
		}
	}
	if len(results) == 0 {
		return nil, nil, types.Validationf("document produced no chunks")
	}

	now := time.Now().UTC()
	doc := &types.KnowledgeDocument{
		ID: uuid.NewString(), Title: title, Source: source, Category: category,
		Version: 1, CreatedAt: now, UpdatedAt: now,
	}

	chunks := make([]*types.KnowledgeChunk, len(results))
	texts := make([]string, len(results))
	for i, r := range results {
		chunks[i] = &types.KnowledgeChunk{
			ID: uuid.NewString(), DocumentID: doc.ID, Content: r.content,
			ChunkIndex: i, SectionPath: r.sectionPath,
			HasPrevious: i > 0, HasNext: i < len(results)-1, CreatedAt: now,
		}
		texts[i] = r.content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, false)
	if err != nil {
		return nil, nil, types.Dependencyf(err, "batch embed chunks")
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, nil, types.Storagef(err, "create document")
	}
	if err := s.store.CreateChunks(ctx, chunks); err != nil {
		return nil, nil, types.Storagef(err, "create chunks")
	}
	for i, c := range chunks {
		if err := s.store.PutChunkEmbedding(ctx, c.ID, vectors[i]); err != nil {
			return nil, nil, types.Storagef(err, "put chunk embedding")
		}
	}
	return doc, chunks, nil
}

// Get fetches a document and its chunks.
func (s *Service) Get(ctx context.Context, id string) (*types.KnowledgeDocument, []*types.KnowledgeChunk, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, types.Storagef(err, "get document")
	}
	if doc == nil {
		return nil, nil, types.NotFoundf("document %s not found", id)
	}
	chunks, err := s.store.GetChunks(ctx, id)
	if err != nil {
		return nil, nil, types.Storagef(err, "get chunks")
	}
	return doc, chunks, nil
}

// Delete removes a document and its chunks.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return types.Storagef(err, "delete document")
	}
	return nil
}

// Search runs a semantic k-NN search over chunk embeddings, optionally
// scoped to one document.
func (s *Service) Search(ctx context.Context, query string, k int, documentID string) ([]types.ChunkSearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query, true)
	if err != nil {
		return nil, types.Dependencyf(err, "embed query")
	}
	hits, err := s.store.ChunkSemanticKNN(ctx, vec, k, documentID)
	if err != nil {
		return nil, types.Storagef(err, "chunk semantic knn")
	}

	docs := map[string]*types.KnowledgeDocument{}
	chunksByDoc := map[string]map[string]*types.KnowledgeChunk{}

	var out []types.ChunkSearchResult
	for _, h := range hits {
		doc, ok := docs[h.DocumentID]
		if !ok {
			doc, err = s.store.GetDocument(ctx, h.DocumentID)
			if err != nil || doc == nil {
				continue
			}
			docs[h.DocumentID] = doc

			chunks, err := s.store.GetChunks(ctx, h.DocumentID)
			if err != nil {
				continue
			}
			byID := make(map[string]*types.KnowledgeChunk, len(chunks))
			for _, c := range chunks {
				byID[c.ID] = c
			}
			chunksByDoc[h.DocumentID] = byID
		}

		chunk, ok := chunksByDoc[h.DocumentID][h.ChunkID]
		if !ok {
			continue
		}
		out = append(out, types.ChunkSearchResult{Chunk: *chunk, Document: *doc, Similarity: h.Similarity})
	}
	return out, nil
}
