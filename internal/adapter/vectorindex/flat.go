package vectorindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"paperqa/internal/domain"
)

// Epsilon keeps normalization finite for zero vectors.
const Epsilon = 1e-9

const formatVersion = 1

var magic = [4]byte{'P', 'Q', 'F', 'I'}

// Hit is one search result: the row id and its inner-product score.
type Hit struct {
	ID    int
	Score float64
}

// FlatIndex is an exact inner-product index over dense, sequential ids.
// Vectors are stored row-major; row i holds the vector with id i. Search
// over unit vectors ranks by cosine similarity.
type FlatIndex struct {
	dimension int
	data      []float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimension int) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return &FlatIndex{dimension: dimension}, nil
}

func (x *FlatIndex) Dimension() int {
	return x.dimension
}

// Size returns the number of stored vectors.
func (x *FlatIndex) Size() int {
	return len(x.data) / x.dimension
}

// Add stores vec under id. Ids must be assigned in order starting at 0.
func (x *FlatIndex) Add(id int, vec []float32) error {
	if len(vec) != x.dimension {
		return fmt.Errorf("%w: vector dimension mismatch: expected %d, got %d", domain.ErrInvariantViolation, x.dimension, len(vec))
	}
	if id != x.Size() {
		return fmt.Errorf("%w: id %d inserted at row %d", domain.ErrInvariantViolation, id, x.Size())
	}
	x.data = append(x.data, vec...)
	return nil
}

// Vector returns a copy of the vector stored under id.
func (x *FlatIndex) Vector(id int) []float32 {
	row := x.data[id*x.dimension : (id+1)*x.dimension]
	out := make([]float32, len(row))
	copy(out, row)
	return out
}

// Search returns up to k hits with the highest inner product against query,
// ordered by descending score. Equal scores are ordered by ascending id.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrInvariantViolation, x.dimension, len(query))
	}

	n := x.Size()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, n)
	for id := 0; id < n; id++ {
		hits[id] = Hit{ID: id, Score: dot(query, x.data[id*x.dimension:(id+1)*x.dimension])}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	return hits[:k], nil
}

// MarshalBinary encodes the index as a little-endian header (magic,
// version, dimension, count) followed by the raw float32 rows.
func (x *FlatIndex) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(16 + 4*len(x.data))

	buf.Write(magic[:])
	header := []uint32{formatVersion, uint32(x.dimension), uint32(x.Size())}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, x.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (x *FlatIndex) UnmarshalBinary(data []byte) error {
	if len(data) < 16 || !bytes.Equal(data[:4], magic[:]) {
		return fmt.Errorf("%w: not a vector index artifact", domain.ErrInvariantViolation)
	}

	var header [3]uint32
	if err := binary.Read(bytes.NewReader(data[4:16]), binary.LittleEndian, &header); err != nil {
		return err
	}
	version, dimension, count := header[0], int(header[1]), int(header[2])
	if version != formatVersion {
		return fmt.Errorf("%w: unsupported index format version %d", domain.ErrInvariantViolation, version)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvariantViolation, dimension)
	}
	rowBytes := 4 * dimension
	if payload := len(data) - 16; payload%rowBytes != 0 || payload/rowBytes != count {
		return fmt.Errorf("%w: index artifact is %d bytes, header claims %d rows of dimension %d", domain.ErrInvariantViolation, len(data), count, dimension)
	}

	rows := make([]float32, dimension*count)
	if err := binary.Read(bytes.NewReader(data[16:]), binary.LittleEndian, rows); err != nil {
		return err
	}

	x.dimension = dimension
	x.data = rows
	return nil
}

// Decode builds a FlatIndex from its binary form.
func Decode(data []byte) (*FlatIndex, error) {
	x := &FlatIndex{}
	if err := x.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return x, nil
}

// Normalize returns v scaled to unit length. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	scale := Norm(v) + Epsilon
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / scale)
	}
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
