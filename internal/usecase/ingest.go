package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/progress"
)

// IngestUseCase handles document ingestion: extract, chunk, embed, index.
type IngestUseCase struct {
	extractor port.Extractor
	chunker   port.Chunker
	embedder  port.Embedder
	index     port.VectorIndex
	docs      port.DocumentStore
	counter   port.UnitCounter
	recorder  port.ProgressRecorder

	saver   port.IndexSaver
	saveDir string

	// commitMu makes the duplicate check, index append and registry write
	// one step, so two uploads of the same file cannot both land.
	commitMu sync.Mutex
	now      func() time.Time
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	extractor port.Extractor,
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	docs port.DocumentStore,
	counter port.UnitCounter,
) *IngestUseCase {
	return &IngestUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		docs:      docs,
		counter:   counter,
		now:       time.Now,
	}
}

// SetRecorder reports steps to rec for requests carrying a progress session.
func (u *IngestUseCase) SetRecorder(rec port.ProgressRecorder) {
	u.recorder = rec
}

// SetAutosave persists the index to dir after every ingestion.
func (u *IngestUseCase) SetAutosave(saver port.IndexSaver, dir string) {
	u.saver = saver
	u.saveDir = dir
}

func (u *IngestUseCase) step(ctx context.Context, step, status, details string) {
	if u.recorder == nil {
		return
	}
	u.recorder.Step(progress.SessionID(ctx), step, status, details)
}

// Ingest indexes one uploaded document and saves the index when autosave
// is on. Once the document is committed a failed save no longer fails the
// call: the result carries a warning and the document stays searchable
// until the process exits.
func (u *IngestUseCase) Ingest(ctx context.Context, filename string, data []byte) (domain.IngestResult, error) {
	res, err := u.ingest(ctx, filename, data)
	if err != nil {
		u.step(ctx, "Ingestion failed", progress.StatusError, err.Error())
		return domain.IngestResult{}, err
	}
	if err := u.save(); err != nil {
		slog.Warn("document indexed but not saved", "document_id", res.DocumentID, "error", err)
		u.step(ctx, "Saving index failed", progress.StatusWarning, err.Error())
		res.Warning = err.Error()
		return res, nil
	}
	u.step(ctx, "Document indexed", progress.StatusSuccess, fmt.Sprintf("%d chunks", res.Chunks))
	return res, nil
}

func (u *IngestUseCase) ingest(ctx context.Context, filename string, data []byte) (domain.IngestResult, error) {
	filename = filepath.Base(filename)
	start := time.Now()

	u.step(ctx, "Extracting text", progress.StatusInfo, filename)
	text, err := u.extractor.Extract(ctx, filename, data)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("%s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.IngestResult{}, fmt.Errorf("%w: %s contains no text", domain.ErrEmptyInput, filename)
	}

	hash := contentHash(text)
	if id, found, err := u.docs.FindByHash(hash); err != nil {
		return domain.IngestResult{}, fmt.Errorf("failed to check registry: %w", err)
	} else if found {
		return domain.IngestResult{}, fmt.Errorf("%w: %s matches document %s", domain.ErrDuplicateDocument, filename, id)
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		Text:       text,
		Hash:       hash,
		Units:      u.counter.Count(text),
		IngestedAt: u.now().UTC(),
	}

	u.step(ctx, "Chunking document", progress.StatusInfo, "")
	chunks, err := u.chunker.Chunk(doc)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("failed to chunk %s: %w", filename, err)
	}
	doc.Chunks = len(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	u.step(ctx, "Embedding chunks", progress.StatusInfo, fmt.Sprintf("%d chunks", len(chunks)))
	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("failed to embed %s: %w", filename, err)
	}
	if len(vectors) != len(chunks) {
		return domain.IngestResult{}, fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingUnavailable, len(chunks), len(vectors))
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.IndexEntry{Vector: vectors[i], Chunk: chunks[i]}
	}

	if err := u.commit(doc, entries); err != nil {
		return domain.IngestResult{}, fmt.Errorf("%s: %w", filename, err)
	}

	slog.Info("document ingested",
		"document_id", doc.ID,
		"filename", filename,
		"chunks", len(chunks),
		"units", doc.Units,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return domain.IngestResult{
		DocumentID: doc.ID,
		Filename:   filename,
		Chunks:     len(chunks),
		Units:      doc.Units,
	}, nil
}

// commit registers doc and then appends its entries. The registry entry
// goes first because it can be taken back and an index append cannot. The
// entry records the rows the chunks will occupy, which ReconcileRegistry
// uses after a restart to drop documents whose rows were never saved.
func (u *IngestUseCase) commit(doc domain.Document, entries []domain.IndexEntry) error {
	u.commitMu.Lock()
	defer u.commitMu.Unlock()

	if id, found, err := u.docs.FindByHash(doc.Hash); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: matches document %s", domain.ErrDuplicateDocument, id)
	}

	// Only commit appends to the index, so under commitMu the next rows
	// start at Len.
	doc.FirstRow = u.index.Len()
	if err := u.docs.PutDoc(doc); err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}
	if _, err := u.index.Add(entries); err != nil {
		if derr := u.docs.DeleteDoc(doc.ID); derr != nil {
			slog.Error("failed to unregister document after index failure", "document_id", doc.ID, "error", derr)
		}
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

func (u *IngestUseCase) save() error {
	if u.saver == nil {
		return nil
	}
	if err := u.saver.Save(u.saveDir); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Path   string
	Result domain.IngestResult
	Err    error
}

// BatchResult summarizes a batch ingestion.
type BatchResult struct {
	Ingested   int
	Duplicates int
	Failed     int
	Chunks     int
	Files      []FileResult
}

// IngestFiles ingests files one by one. A failing file is reported and the
// batch continues. The index is saved once at the end. onFile, if set, is
// called after each file.
func (u *IngestUseCase) IngestFiles(ctx context.Context, files []port.FileInfo, onFile func(FileResult)) (*BatchResult, error) {
	batch := &BatchResult{}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		fr := FileResult{Path: f.Path}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			fr.Err = fmt.Errorf("failed to read file: %w", err)
		} else {
			fr.Result, fr.Err = u.ingest(ctx, f.Path, data)
		}

		switch {
		case fr.Err == nil:
			batch.Ingested++
			batch.Chunks += fr.Result.Chunks
		case errors.Is(fr.Err, domain.ErrDuplicateDocument):
			batch.Duplicates++
		default:
			batch.Failed++
			slog.Warn("failed to ingest file", "path", f.Path, "error", fr.Err)
		}
		batch.Files = append(batch.Files, fr)
		if onFile != nil {
			onFile(fr)
		}
	}

	if batch.Ingested > 0 {
		if err := u.save(); err != nil {
			return batch, err
		}
	}
	return batch, nil
}

// ReconcileRegistry removes registry entries whose chunks lie beyond the
// first rows of the index, as left by ingestions that were committed but
// never saved. The removed documents can be ingested again.
func ReconcileRegistry(docs port.DocumentStore, rows int) ([]domain.Document, error) {
	all, err := docs.ListDocs()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	var dropped []domain.Document
	for _, doc := range all {
		if doc.FirstRow+doc.Chunks <= rows {
			continue
		}
		if err := docs.DeleteDoc(doc.ID); err != nil {
			return dropped, fmt.Errorf("failed to drop unsaved document %s: %w", doc.ID, err)
		}
		dropped = append(dropped, doc)
	}
	return dropped, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
