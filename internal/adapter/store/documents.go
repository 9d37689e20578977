package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var (
	bucketDocs   = []byte("docs")
	bucketBlobs  = []byte("blobs")
	bucketHashes = []byte("hashes")
)

// DocumentStore is the bbolt-backed document registry. It keeps document
// metadata, the extracted text, and a content-hash lookup used to reject
// duplicate uploads.
type DocumentStore struct {
	db *bbolt.DB
}

var _ port.DocumentStore = (*DocumentStore)(nil)

func NewDocumentStore(path string) (*DocumentStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketBlobs, bucketHashes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DocumentStore{db: db}, nil
}

type docMeta struct {
	Filename   string `json:"filename"`
	Hash       string `json:"hash"`
	Units      int    `json:"units"`
	Chunks     int    `json:"chunks"`
	FirstRow   int    `json:"first_row"`
	IngestedAt int64  `json:"ingested_at"`
}

// PutDoc stores a document. Documents are immutable, so an existing ID is
// rejected.
func (s *DocumentStore) PutDoc(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		if docs.Get([]byte(doc.ID)) != nil {
			return fmt.Errorf("%w: id %s", domain.ErrDuplicateDocument, doc.ID)
		}
		if doc.Hash != "" {
			if existing := tx.Bucket(bucketHashes).Get([]byte(doc.Hash)); existing != nil {
				return fmt.Errorf("%w: same content as %s", domain.ErrDuplicateDocument, existing)
			}
		}

		meta := docMeta{
			Filename:   doc.Filename,
			Hash:       doc.Hash,
			Units:      doc.Units,
			Chunks:     doc.Chunks,
			FirstRow:   doc.FirstRow,
			IngestedAt: doc.IngestedAt.UnixNano(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := docs.Put([]byte(doc.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlobs).Put([]byte(doc.ID), []byte(doc.Text)); err != nil {
			return err
		}
		if doc.Hash != "" {
			return tx.Bucket(bucketHashes).Put([]byte(doc.Hash), []byte(doc.ID))
		}
		return nil
	})
}

func (s *DocumentStore) GetDoc(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = fromMeta(id, meta)
		doc.Text = string(tx.Bucket(bucketBlobs).Get([]byte(id)))
		return nil
	})
	return doc, err
}

func (s *DocumentStore) DeleteDoc(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		data := docs.Get([]byte(id))
		if data == nil {
			return nil
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		if meta.Hash != "" {
			if err := tx.Bucket(bucketHashes).Delete([]byte(meta.Hash)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketBlobs).Delete([]byte(id)); err != nil {
			return err
		}
		return docs.Delete([]byte(id))
	})
}

// ListDocs returns document metadata without text, oldest first.
func (s *DocumentStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, fromMeta(string(k), meta))
			return nil
		})
	})
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].IngestedAt.Before(docs[j].IngestedAt)
	})
	return docs, err
}

func (s *DocumentStore) FindByHash(hash string) (string, bool, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketHashes).Get([]byte(hash)); v != nil {
			id = string(v)
		}
		return nil
	})
	return id, id != "", err
}

func (s *DocumentStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func fromMeta(id string, meta docMeta) domain.Document {
	return domain.Document{
		ID:         id,
		Filename:   meta.Filename,
		Hash:       meta.Hash,
		Units:      meta.Units,
		Chunks:     meta.Chunks,
		FirstRow:   meta.FirstRow,
		IngestedAt: time.Unix(0, meta.IngestedAt),
	}
}
