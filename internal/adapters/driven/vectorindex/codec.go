package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// On-disk index format, little-endian throughout:
//
//	magic "RGIX" | uint16 version | uint16 model tag length | model tag bytes
//	uint32 dimensions | uint64 count
//	count records of: int64 chunk ID | dimensions * float32
const (
	indexMagic   = "RGIX"
	indexVersion = 1
)

// Save writes the index to path atomically (write to a temp file in the
// same directory, then rename), so a crash mid-write leaves the previous
// good snapshot untouched.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), "index-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)

	if _, err := w.WriteString(indexMagic); err != nil {
		return fmt.Errorf("writing index header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(indexVersion)); err != nil {
		return fmt.Errorf("writing index version: %w", err)
	}
	model := []byte(ix.model)
	if err := binary.Write(w, binary.LittleEndian, uint16(len(model))); err != nil {
		return fmt.Errorf("writing model tag length: %w", err)
	}
	if _, err := w.Write(model); err != nil {
		return fmt.Errorf("writing model tag: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.dim)); err != nil {
		return fmt.Errorf("writing dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(ix.ids))); err != nil {
		return fmt.Errorf("writing count: %w", err)
	}

	buf := make([]byte, 8)
	for i := range ix.ids {
		binary.LittleEndian.PutUint64(buf, uint64(ix.ids[i]))
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("writing chunk id: %w", err)
		}
		for _, f := range ix.vecs[i] {
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(f))
			if _, err := w.Write(buf[:4]); err != nil {
				return fmt.Errorf("writing vector: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

// Load reads an index previously written by Save. The model tag in the
// file must match the expected model, otherwise the load is refused with
// domain.ErrCollectionModelMismatch. Undecodable content fails with
// domain.ErrCollectionCorrupt; the file is left as-is.
func Load(path, expectedModel string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, corrupt("reading magic", err)
	}
	if string(magic) != indexMagic {
		return nil, fmt.Errorf("bad magic %q: %w", magic, domain.ErrCollectionCorrupt)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, corrupt("reading version", err)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d: %w", version, domain.ErrCollectionCorrupt)
	}

	var modelLen uint16
	if err := binary.Read(r, binary.LittleEndian, &modelLen); err != nil {
		return nil, corrupt("reading model tag length", err)
	}
	model := make([]byte, modelLen)
	if _, err := io.ReadFull(r, model); err != nil {
		return nil, corrupt("reading model tag", err)
	}
	if expectedModel != "" && string(model) != expectedModel {
		return nil, fmt.Errorf("index built with model %q, configured model is %q: %w",
			model, expectedModel, domain.ErrCollectionModelMismatch)
	}

	var dim uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, corrupt("reading dimensions", err)
	}
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, corrupt("reading count", err)
	}

	ix := New(string(model))
	ix.dim = int(dim)
	ix.ids = make([]int64, 0, count)
	ix.vecs = make([][]float32, 0, count)
	ix.norms = make([]float64, 0, count)

	rec := make([]byte, 8)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, corrupt("reading chunk id", err)
		}
		id := int64(binary.LittleEndian.Uint64(rec))

		vec := make([]float32, dim)
		for j := range vec {
			if _, err := io.ReadFull(r, rec[:4]); err != nil {
				return nil, corrupt("reading vector", err)
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(rec[:4]))
		}

		ix.ids = append(ix.ids, id)
		ix.vecs = append(ix.vecs, vec)
		ix.norms = append(ix.norms, norm(vec))
	}

	return ix, nil
}

func corrupt(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrCollectionCorrupt)
}

