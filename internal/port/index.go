package port

import "docqa/internal/domain"

// VectorIndex is the append-only store of embedded chunks.
type VectorIndex interface {
	Add(entries []domain.IndexEntry) ([]uint64, error)

	Search(query []float32, k int) ([]domain.ScoredChunk, error)

	Len() int

	Dimension() int
}

// DocumentStore records ingested documents. It is the ingestion-boundary
// guard against duplicate uploads.
type DocumentStore interface {
	PutDoc(doc domain.Document) error

	GetDoc(id string) (domain.Document, error)

	// DeleteDoc removes a document and its hash. A missing id is not an error.
	DeleteDoc(id string) error

	ListDocs() ([]domain.Document, error)

	// FindByHash returns the ID of the document with the given content hash.
	FindByHash(hash string) (string, bool, error)

	Count() (int, error)

	Close() error
}

// IndexSaver persists an index to a directory.
type IndexSaver interface {
	Save(dir string) error
}
