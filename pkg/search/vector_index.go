package search

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
)

const (
	vectorIndexMagic   = "CDVI"
	vectorIndexVersion = uint16(1)
)

// ContentHash identifies the document text a vector was computed from.
type ContentHash [32]byte

func ComputeContentHash(text string) ContentHash {
	return sha256.Sum256([]byte(text))
}

func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

func ParseContentHashHex(s string) (ContentHash, error) {
	var out ContentHash
	if len(s) != 2*len(out) {
		return out, fmt.Errorf("invalid content hash length: %d", len(s))
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return out, fmt.Errorf("decode content hash: %w", err)
	}
	return out, nil
}

type VectorEntry struct {
	ContentHash ContentHash
	Vector      []float32
}

// indexHeader is the fixed-size prefix of an index file, little endian.
type indexHeader struct {
	Magic   [4]byte
	Version uint16
	_       uint16
	Dim     uint32
	Count   uint32
}

// VectorIndex maps event ids to embeddings. It is safe for concurrent use.
type VectorIndex struct {
	Dim int

	mu      sync.RWMutex
	entries map[string]VectorEntry
}

func NewVectorIndex(dim int) *VectorIndex {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	return &VectorIndex{Dim: dim, entries: make(map[string]VectorEntry)}
}

// LoadVectorIndex reads an index written by Save.
func LoadVectorIndex(path string) (*VectorIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var hdr indexHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != vectorIndexMagic {
		return nil, fmt.Errorf("invalid magic %q", string(hdr.Magic[:]))
	}
	if hdr.Version != vectorIndexVersion {
		return nil, fmt.Errorf("unsupported version %d", hdr.Version)
	}
	if hdr.Dim == 0 {
		return nil, errors.New("invalid dim 0")
	}

	idx := NewVectorIndex(int(hdr.Dim))
	for i := uint32(0); i < hdr.Count; i++ {
		id, entry, err := readEntry(r, idx.Dim)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		idx.entries[id] = entry
	}
	return idx, nil
}

func readEntry(r io.Reader, dim int) (string, VectorEntry, error) {
	var idLen uint16
	if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
		return "", VectorEntry{}, err
	}
	if idLen == 0 {
		return "", VectorEntry{}, errors.New("empty event id")
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(r, id); err != nil {
		return "", VectorEntry{}, err
	}
	e := VectorEntry{Vector: make([]float32, dim)}
	if _, err := io.ReadFull(r, e.ContentHash[:]); err != nil {
		return "", VectorEntry{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, e.Vector); err != nil {
		return "", VectorEntry{}, err
	}
	return string(id), e, nil
}

// Save writes the index atomically via a temp file and rename. Entries are
// written in id order so identical indexes produce identical files.
func (idx *VectorIndex) Save(path string) (err error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "cdvi-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	hdr := indexHeader{Version: vectorIndexVersion, Dim: uint32(idx.Dim), Count: uint32(len(idx.entries))}
	copy(hdr.Magic[:], vectorIndexMagic)
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, id := range idx.idsLocked() {
		if len(id) > math.MaxUint16 {
			return fmt.Errorf("event id too long: %d", len(id))
		}
		e := idx.entries[id]
		if err := binary.Write(w, binary.LittleEndian, uint16(len(id))); err != nil {
			return err
		}
		if _, err := w.WriteString(id); err != nil {
			return err
		}
		if _, err := w.Write(e.ContentHash[:]); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.Vector); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (idx *VectorIndex) Upsert(eventID string, hash ContentHash, vec []float32) error {
	if eventID == "" {
		return errors.New("event id cannot be empty")
	}
	if len(vec) != idx.Dim {
		return fmt.Errorf("vector dim mismatch: %d != %d", len(vec), idx.Dim)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[eventID] = VectorEntry{ContentHash: hash, Vector: slices.Clone(vec)}
	return nil
}

func (idx *VectorIndex) Remove(eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, eventID)
}

func (idx *VectorIndex) Get(eventID string) (VectorEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[eventID]
	return e, ok
}

func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// idsLocked returns the ids in order; the caller holds mu.
func (idx *VectorIndex) idsLocked() []string {
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Sync brings the index in line with docs: stale ids are dropped and only
// documents whose text changed are re-embedded. It returns the number of
// documents embedded.
func (idx *VectorIndex) Sync(ctx context.Context, emb Embedder, docs []Document) (int, error) {
	want := make(map[string]bool, len(docs))
	var pending []Document
	var hashes []ContentHash
	for _, d := range docs {
		want[d.EventID] = true
		h := ComputeContentHash(d.Text)
		if e, ok := idx.Get(d.EventID); ok && e.ContentHash == h {
			continue
		}
		pending = append(pending, d)
		hashes = append(hashes, h)
	}

	idx.mu.Lock()
	for id := range idx.entries {
		if !want[id] {
			delete(idx.entries, id)
		}
	}
	idx.mu.Unlock()

	if len(pending) == 0 {
		return 0, nil
	}
	texts := make([]string, len(pending))
	for i, d := range pending {
		texts[i] = d.Text
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vecs) != len(pending) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(pending))
	}
	for i, d := range pending {
		if err := idx.Upsert(d.EventID, hashes[i], vecs[i]); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

type SearchResult struct {
	EventID string  `json:"event_id"`
	Score   float64 `json:"score"`
}

// SearchTopK returns the k entries with the highest dot product against
// query, ties broken by id.
func (idx *VectorIndex) SearchTopK(query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != idx.Dim {
		return nil, fmt.Errorf("query dim mismatch: %d != %d", len(query), idx.Dim)
	}

	idx.mu.RLock()
	results := make([]SearchResult, 0, len(idx.entries))
	for _, id := range idx.idsLocked() {
		results = append(results, SearchResult{EventID: id, Score: dotFloat32(query, idx.entries[id].Vector)})
	}
	idx.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func dotFloat32(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
