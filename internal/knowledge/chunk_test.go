package knowledge

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenwick-labs/memoria/internal/embedding"
	"github.com/fenwick-labs/memoria/internal/storage/sqlite"
	"github.com/fenwick-labs/memoria/internal/types"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return New(db, embedding.NewDeterministic(16)), func() { db.Close() }
}

func TestSplitSentencesTrimsAndDropsEmpty(t *testing.T) {
	got := splitSentences("One sentence. Two sentence!  Three?  ")
	if len(got) != 3 {
		t.Fatalf("splitSentences() = %v, want 3", got)
	}
}

func TestChunkBySentenceRespectsChunkSize(t *testing.T) {
	text := strings.Repeat("This is a short sentence. ", 20)
	chunks := chunkBySentence(text, 100, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long text, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 150 {
			t.Errorf("chunk length %d exceeds a reasonable bound for chunkSize 100", len(c))
		}
	}
}

func TestChunkBySentenceAppliesOverlap(t *testing.T) {
	text := strings.Repeat("Sentence number here. ", 10)
	chunks := chunkBySentence(text, 60, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}

func TestChunkByParagraphSplitsOnBlankLines(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."
	chunks := chunkByParagraph(text, 1000, 0)
	if len(chunks) != 3 {
		t.Fatalf("chunkByParagraph() = %v, want 3 chunks", chunks)
	}
}

func TestChunkByParagraphFallsBackToSentenceWhenOversized(t *testing.T) {
	oversized := strings.Repeat("A reasonably long sentence goes here. ", 20)
	chunks := chunkByParagraph(oversized, 100, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected an oversized paragraph to split into multiple chunks, got %d", len(chunks))
	}
}

func TestImportSentenceStrategyProducesChunks(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	doc, chunks, err := svc.Import(ctx, "Doc Title", "unit-test", "general",
		"First fact here. Second fact here. Third fact here.",
		types.StrategySentence, 30, 0)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected a generated document ID")
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if !chunks[0].HasNext && len(chunks) > 1 {
		t.Error("expected first of multiple chunks to report HasNext")
	}
	if chunks[0].HasPrevious {
		t.Error("expected first chunk to report HasPrevious=false")
	}
}

func TestImportRejectsContentThatProducesNoChunks(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	_, _, err := svc.Import(context.Background(), "Empty", "unit-test", "general", "   ", types.StrategySentence, 100, 0)
	if err == nil {
		t.Fatal("expected error for content producing no chunks")
	}
}

func TestImportThenGetRoundTrips(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	doc, chunks, err := svc.Import(ctx, "Doc", "src", "cat", "Some content to chunk up nicely.", types.StrategySentence, 1000, 0)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	gotDoc, gotChunks, err := svc.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotDoc.Title != "Doc" {
		t.Errorf("title = %q, want Doc", gotDoc.Title)
	}
	if len(gotChunks) != len(chunks) {
		t.Errorf("got %d chunks, want %d", len(gotChunks), len(chunks))
	}
}

func TestGetMissingDocumentReturnsNotFound(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	_, _, err := svc.Get(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestSearchFindsImportedChunk(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	_, _, err := svc.Import(ctx, "Doc", "src", "cat", "The quarterly report mentions rising costs.", types.StrategySentence, 1000, 0)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	results, err := svc.Search(ctx, "The quarterly report mentions rising costs.", 5, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one chunk search result")
	}
}
