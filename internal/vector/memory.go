package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/pagewise/pkg/utils"
)

const (
	indexMagic   = "PWVI"
	indexVersion = uint32(1)
)

// MemoryIndex is an in-memory vector index using brute-force inner product search.
type MemoryIndex struct {
	dimensions int
	ids        []int64
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Rebuild creates an index holding exactly the given entries, in order. It is used to
// compact away positions whose chunks were deleted.
func Rebuild(dimensions int, ids []int64, vectors [][]float32) (*MemoryIndex, error) {
	m, err := NewMemoryIndex(dimensions)
	if err != nil {
		return nil, err
	}
	if err := m.Add(context.Background(), ids, vectors); err != nil {
		return nil, err
	}
	return m, nil
}

// Add appends normalized copies of vectors with the given IDs. Either all vectors are
// added or none.
func (m *MemoryIndex) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	copies := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(v), m.dimensions)
		}
		copies[i] = utils.NormalizedCopy(v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, ids...)
	m.vectors = append(m.vectors, copies...)
	return nil
}

// Search returns the top-k positions by inner product with the normalized query.
// Equal scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, keep func(id int64) bool) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	q := utils.NormalizedCopy(query)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var scored []Result
	for pos, id := range m.ids {
		if pos%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if keep != nil && !keep(id) {
			continue
		}
		scored = append(scored, Result{ID: id, Position: pos, Score: InnerProduct(q, m.vectors[pos])})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Save writes the index to path through a temp file and rename. Format (little endian):
// magic "PWVI", version, dimensions, count, then per entry the int64 id and the float32 vector.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	if err := m.writeTo(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

func (m *MemoryIndex) writeTo(w io.Writer) error {
	if _, err := io.WriteString(w, indexMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := []uint32{indexVersion, uint32(m.dimensions), uint32(len(m.ids))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf := make([]byte, 8+m.dimensions*4)
	for i, id := range m.ids {
		binary.LittleEndian.PutUint64(buf[:8], uint64(id))
		for j, v := range m.vectors[i] {
			binary.LittleEndian.PutUint32(buf[8+j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
	}
	return nil
}

// Load replaces the in-memory contents with the index at path. A missing file leaves the
// index unchanged and returns nil. A file of a different dimension returns ErrDimensionMismatch;
// a file whose size disagrees with its header is rejected before any entry is read.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != indexMagic {
		return fmt.Errorf("not a vector index file: %s", path)
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	version, dim, n := header[0], int(header[1]), int(header[2])
	if version != indexVersion {
		return fmt.Errorf("unsupported index version %d", version)
	}
	if dim != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, m.dimensions)
	}

	entrySize := int64(8 + dim*4)
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	headerSize := int64(len(indexMagic) + 12)
	if want := headerSize + int64(n)*entrySize; info.Size() != want {
		return fmt.Errorf("corrupt index file %s: header declares %d entries (%d bytes), file has %d bytes",
			path, n, want, info.Size())
	}

	ids := make([]int64, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, entrySize)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read entry %d: %w", i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[8+j*4:]))
		}
		ids = append(ids, int64(binary.LittleEndian.Uint64(buf[:8])))
		vectors = append(vectors, vec)
	}

	m.mu.Lock()
	m.ids = ids
	m.vectors = vectors
	m.mu.Unlock()
	return nil
}

// Size returns the number of positions in the index, including stale ones.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// IDs returns a copy of the position to chunk id map.
func (m *MemoryIndex) IDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.ids...)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
