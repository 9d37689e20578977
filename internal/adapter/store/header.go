package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
)

// CurrentSchemaVersion is the on-disk format version of the index file pair.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	bucketHeader  = []byte("header")
	bucketVectors = []byte("vectors")
	bucketChunks  = []byte("chunks")
	keyHeader     = []byte("info")
)

// Header describes one file of the persisted pair.
type Header struct {
	Version   int    `json:"version"`
	Dimension int    `json:"dimension,omitempty"`
	Metric    Metric `json:"metric,omitempty"`
	Model     string `json:"model,omitempty"`
	Count     int    `json:"count"`
}

func putHeader(tx *bbolt.Tx, h Header) error {
	b, err := tx.CreateBucketIfNotExists(bucketHeader)
	if err != nil {
		return err
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return b.Put(keyHeader, data)
}

func readHeader(tx *bbolt.Tx, file string) (Header, error) {
	var h Header
	b := tx.Bucket(bucketHeader)
	if b == nil {
		return h, fmt.Errorf("%w: %s has no header", domain.ErrCorruptIndex, file)
	}
	data := b.Get(keyHeader)
	if data == nil {
		return h, fmt.Errorf("%w: %s has no header", domain.ErrCorruptIndex, file)
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("%w: %s header: %v", domain.ErrCorruptIndex, file, err)
	}
	if h.Version > CurrentSchemaVersion {
		return h, fmt.Errorf("%w: %s created by newer version (v%d > v%d)", domain.ErrCorruptIndex, file, h.Version, CurrentSchemaVersion)
	}
	if h.Version < 1 || h.Count < 0 || h.Dimension < 0 {
		return h, fmt.Errorf("%w: %s header is invalid: %+v", domain.ErrCorruptIndex, file, h)
	}
	return h, nil
}

// rowKey encodes a row id so bbolt's byte ordering matches insertion order.
func rowKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

func parseRowKey(k []byte) (uint64, bool) {
	if len(k) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(k), true
}
