package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"
)

// rowHasher hashes the key cells of a row with xxhash.
type rowHasher struct {
	cols   []arrow.Array
	digest *xxhash.Digest
	buf    [8]byte
}

func newRowHasher(cols []arrow.Array) *rowHasher {
	return &rowHasher{cols: cols, digest: xxhash.New()}
}

func (h *rowHasher) hasNull(row int) bool {
	for _, c := range h.cols {
		if c.IsNull(row) {
			return true
		}
	}
	return false
}

func (h *rowHasher) hash(row int) uint64 {
	h.digest.Reset()
	for _, c := range h.cols {
		switch c := c.(type) {
		case *array.Int64:
			binary.LittleEndian.PutUint64(h.buf[:], uint64(c.Value(row)))
			_, _ = h.digest.Write(h.buf[:])
		case *array.Float64:
			v := c.Value(row)
			if v == 0 {
				v = 0 // -0.0 and +0.0 compare equal, so they must hash alike
			}
			binary.LittleEndian.PutUint64(h.buf[:], math.Float64bits(v))
			_, _ = h.digest.Write(h.buf[:])
		case *array.String:
			s := c.Value(row)
			binary.LittleEndian.PutUint64(h.buf[:], uint64(len(s)))
			_, _ = h.digest.Write(h.buf[:])
			_, _ = h.digest.WriteString(s)
		}
	}
	return h.digest.Sum64()
}

func rowsEqual(a []arrow.Array, i int, b []arrow.Array, j int) bool {
	for k := range a {
		if !valuesEqual(a[k], i, b[k], j) {
			return false
		}
	}
	return true
}

// hashIndex assigns dense group ids to distinct non-null key tuples in insertion order.
type hashIndex struct {
	cols    []arrow.Array
	hasher  *rowHasher
	buckets map[uint64][]int32
	reps    []int // first row of each group
}

func newHashIndex(cols []arrow.Array, sizeHint int) *hashIndex {
	return &hashIndex{
		cols:    cols,
		hasher:  newRowHasher(cols),
		buckets: make(map[uint64][]int32, sizeHint),
	}
}

// insert returns the group of row, creating it if needed, or -1 if a key is null.
func (x *hashIndex) insert(row int) int32 {
	if x.hasher.hasNull(row) {
		return -1
	}
	h := x.hasher.hash(row)
	for _, g := range x.buckets[h] {
		if rowsEqual(x.cols, x.reps[g], x.cols, row) {
			return g
		}
	}
	g := int32(len(x.reps))
	x.reps = append(x.reps, row)
	x.buckets[h] = append(x.buckets[h], g)
	return g
}

// lookup finds the group of row in probe, which hashes columns of the same types.
func (x *hashIndex) lookup(probe *rowHasher, row int) int32 {
	if probe.hasNull(row) {
		return -1
	}
	for _, g := range x.buckets[probe.hash(row)] {
		if rowsEqual(x.cols, x.reps[g], probe.cols, row) {
			return g
		}
	}
	return -1
}

func (x *hashIndex) len() int {
	return len(x.reps)
}

func checkKeyTypes(left, right []arrow.Array, names []string) error {
	for i := range left {
		if !arrow.TypeEqual(left[i].DataType(), right[i].DataType()) {
			return fmt.Errorf("key %q has types %s and %s: %w",
				names[i], left[i].DataType(), right[i].DataType(), ErrUnsupportedType)
		}
	}
	return nil
}
