package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
)

// File names of the persisted pair, and of the pointer naming the
// generation directory that holds the live pair.
const (
	VectorsFile  = "vectors.db"
	MetadataFile = "metadata.db"
	CurrentFile  = "CURRENT"

	generationPrefix = "gen-"
)

var generationName = regexp.MustCompile(`^gen-[0-9]{6,}$`)

// Save writes the pair into a fresh generation directory under dir and then
// switches CURRENT to it with a single rename. Until that rename the
// previously saved pair stays live, so an interrupted save loses only the
// entries added since. Concurrent searches proceed; adds wait until the save
// completes.
func (x *VectorIndex) Save(dir string) error {
	x.saveMu.Lock()
	defer x.saveMu.Unlock()

	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	start := time.Now()
	gen, err := nextGeneration(dir)
	if err != nil {
		return err
	}
	if err := x.writeGeneration(dir, gen); err != nil {
		return err
	}
	if err := installGeneration(dir, gen); err != nil {
		return err
	}
	removeStale(dir, gen)

	slog.Debug("index saved", "dir", dir, "generation", gen, "entries", len(x.vectors), "took", time.Since(start))
	return nil
}

// writeGeneration writes both files into dir/gen. Nothing reads them until
// installGeneration points CURRENT at gen.
func (x *VectorIndex) writeGeneration(dir, gen string) error {
	genDir := filepath.Join(dir, gen)
	if err := os.RemoveAll(genDir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", gen, err)
	}
	if err := os.MkdirAll(genDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", gen, err)
	}
	if err := x.writeVectors(filepath.Join(genDir, VectorsFile)); err != nil {
		_ = os.RemoveAll(genDir)
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := x.writeMetadata(filepath.Join(genDir, MetadataFile)); err != nil {
		_ = os.RemoveAll(genDir)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func installGeneration(dir, gen string) error {
	tmp := filepath.Join(dir, CurrentFile+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", CurrentFile, err)
	}
	_, werr := f.WriteString(gen + "\n")
	serr := f.Sync()
	cerr := f.Close()
	if err := errors.Join(werr, serr, cerr); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", CurrentFile, err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, CurrentFile)); err != nil {
		return fmt.Errorf("failed to install %s: %w", CurrentFile, err)
	}
	return nil
}

// nextGeneration names the directory after the highest one present, live
// or abandoned.
func nextGeneration(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var highest uint64
	for _, e := range entries {
		if !e.IsDir() || !generationName.MatchString(e.Name()) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(e.Name(), generationPrefix), 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%06d", generationPrefix, highest+1), nil
}

// removeStale deletes every generation other than live, plus a pair left at
// the top level by older versions. Failures only leave garbage behind.
func removeStale(dir, live string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != live && generationName.MatchString(e.Name()) {
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				slog.Warn("failed to remove old index generation", "dir", e.Name(), "error", err)
			}
		}
	}
	_ = os.Remove(filepath.Join(dir, VectorsFile))
	_ = os.Remove(filepath.Join(dir, MetadataFile))
}

// PairDir returns the directory holding the live pair: the generation named
// by CURRENT, or dir itself for an index saved before generations existed.
func PairDir(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, CurrentFile))
	if os.IsNotExist(err) {
		return dir, nil
	}
	if err != nil {
		return "", err
	}
	gen := strings.TrimSpace(string(data))
	if !generationName.MatchString(gen) {
		return "", fmt.Errorf("%w: %s names %q", domain.ErrCorruptIndex, CurrentFile, gen)
	}
	return filepath.Join(dir, gen), nil
}

func (x *VectorIndex) writeVectors(path string) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		h := Header{
			Version:   CurrentSchemaVersion,
			Dimension: x.dimension,
			Metric:    x.metric,
			Model:     x.model,
			Count:     len(x.vectors),
		}
		if err := putHeader(tx, h); err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}
		// Keys are appended in order, so a full fill is space-efficient.
		b.FillPercent = 1.0
		for i, v := range x.vectors {
			if err := b.Put(rowKey(uint64(i)), encodeVector(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *VectorIndex) writeMetadata(path string) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		if err := putHeader(tx, Header{Version: CurrentSchemaVersion, Count: len(x.chunks)}); err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists(bucketChunks)
		if err != nil {
			return err
		}
		b.FillPercent = 1.0
		for i, c := range x.chunks {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := b.Put(rowKey(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadVectorIndex restores the live pair saved in dir. A directory without
// either file yields an empty index; CURRENT pointing at a missing pair does
// not. Any inconsistency between the two
// files fails with ErrCorruptIndex; a file saved with another metric fails
// with ErrInvalidConfig.
func LoadVectorIndex(dir string, metric Metric, model string) (*VectorIndex, error) {
	pairDir, err := PairDir(dir)
	if err != nil {
		return nil, err
	}
	vecPath := filepath.Join(pairDir, VectorsFile)
	metaPath := filepath.Join(pairDir, MetadataFile)

	vecExists, err := fileExists(vecPath)
	if err != nil {
		return nil, err
	}
	metaExists, err := fileExists(metaPath)
	if err != nil {
		return nil, err
	}

	switch {
	case !vecExists && !metaExists && pairDir == dir:
		return NewVectorIndex(metric, model), nil
	case !vecExists && !metaExists:
		return nil, fmt.Errorf("%w: %s points at %s, which holds no index", domain.ErrCorruptIndex, CurrentFile, filepath.Base(pairDir))
	case !vecExists:
		return nil, fmt.Errorf("%w: %s exists without %s", domain.ErrCorruptIndex, MetadataFile, VectorsFile)
	case !metaExists:
		return nil, fmt.Errorf("%w: %s exists without %s", domain.ErrCorruptIndex, VectorsFile, MetadataFile)
	}

	x := &VectorIndex{metric: metric, model: model}

	h, err := x.readVectors(vecPath)
	if err != nil {
		return nil, err
	}
	if h.Metric != "" && h.Metric != metric {
		return nil, fmt.Errorf("%w: index was built with metric %s, configured %s", domain.ErrInvalidConfig, h.Metric, metric)
	}
	if h.Model != "" && model != "" && h.Model != model {
		slog.Warn("index was built with a different embedding model", "index_model", h.Model, "configured_model", model)
	}
	if h.Model != "" {
		x.model = h.Model
	}

	if err := x.readMetadata(metaPath); err != nil {
		return nil, err
	}

	if len(x.chunks) != len(x.vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata records", domain.ErrCorruptIndex, len(x.vectors), len(x.chunks))
	}

	return x, nil
}

func (x *VectorIndex) readVectors(path string) (Header, error) {
	var h Header

	db, err := openReadOnly(path)
	if err != nil {
		return h, err
	}
	defer db.Close()

	err = db.View(func(tx *bbolt.Tx) error {
		hdr, err := readHeader(tx, VectorsFile)
		if err != nil {
			return err
		}
		h = hdr

		b := tx.Bucket(bucketVectors)
		if b == nil {
			if h.Count == 0 {
				return nil
			}
			return fmt.Errorf("%w: %s has no vectors bucket", domain.ErrCorruptIndex, VectorsFile)
		}

		var next uint64
		err = b.ForEach(func(k, v []byte) error {
			id, ok := parseRowKey(k)
			if !ok || id != next {
				return fmt.Errorf("%w: %s row %d out of sequence", domain.ErrCorruptIndex, VectorsFile, next)
			}
			vec, ok := decodeVector(v, h.Dimension)
			if !ok {
				return fmt.Errorf("%w: row %d has %d bytes, want %d dimensions", domain.ErrCorruptIndex, id, len(v), h.Dimension)
			}
			x.vectors = append(x.vectors, vec)
			x.norms = append(x.norms, norm(vec))
			next++
			return nil
		})
		if err != nil {
			return err
		}

		if len(x.vectors) != h.Count {
			return fmt.Errorf("%w: %s header says %d vectors, found %d", domain.ErrCorruptIndex, VectorsFile, h.Count, len(x.vectors))
		}
		return nil
	})
	if err != nil {
		return h, err
	}

	if len(x.vectors) > 0 {
		x.dimension = h.Dimension
	}
	return h, nil
}

func (x *VectorIndex) readMetadata(path string) error {
	db, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bbolt.Tx) error {
		h, err := readHeader(tx, MetadataFile)
		if err != nil {
			return err
		}

		b := tx.Bucket(bucketChunks)
		if b == nil {
			if h.Count == 0 {
				return nil
			}
			return fmt.Errorf("%w: %s has no chunks bucket", domain.ErrCorruptIndex, MetadataFile)
		}

		var next uint64
		err = b.ForEach(func(k, v []byte) error {
			id, ok := parseRowKey(k)
			if !ok || id != next {
				return fmt.Errorf("%w: %s row %d out of sequence", domain.ErrCorruptIndex, MetadataFile, next)
			}
			var c domain.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("%w: metadata row %d: %v", domain.ErrCorruptIndex, id, err)
			}
			x.chunks = append(x.chunks, c)
			next++
			return nil
		})
		if err != nil {
			return err
		}

		if len(x.chunks) != h.Count {
			return fmt.Errorf("%w: %s header says %d records, found %d", domain.ErrCorruptIndex, MetadataFile, h.Count, len(x.chunks))
		}
		return nil
	})
}

func openReadOnly(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0400, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("index file %s is locked: %w", filepath.Base(path), err)
		}
		return nil, fmt.Errorf("%w: cannot open %s: %v", domain.ErrCorruptIndex, filepath.Base(path), err)
	}
	return db, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte, dim int) ([]float32, bool) {
	if dim <= 0 || len(b) != 4*dim {
		return nil, false
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}
