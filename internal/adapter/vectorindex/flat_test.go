package vectorindex

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/domain"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, Norm(v), 1e-6)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
	for _, f := range zero {
		assert.False(t, math.IsNaN(float64(f)))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize([]float32{1, -2, 0.5, 7})
	twice := Normalize(once)
	assert.InDelta(t, 1.0, Norm(twice), 1e-6)
	for i := range once {
		assert.InDelta(t, once[i], twice[i], 1e-6)
	}
}

func TestFlatIndexAddEnforcesInvariants(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)

	require.NoError(t, idx.Add(0, []float32{1, 0}))

	err = idx.Add(1, []float32{1, 0, 0})
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))

	err = idx.Add(5, []float32{0, 1})
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))

	assert.Equal(t, 1, idx.Size())
}

func TestNewFlatIndexRejectsBadDimension(t *testing.T) {
	_, err := NewFlatIndex(0)
	assert.Error(t, err)
}

func TestFlatIndexSearch(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(0, Normalize([]float32{1, 0})))
	require.NoError(t, idx.Add(1, Normalize([]float32{0, 1})))
	require.NoError(t, idx.Add(2, Normalize([]float32{1, 1})))

	hits, err := idx.Search(Normalize([]float32{1, 0.1}), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].ID)
	assert.Equal(t, 2, hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = idx.Search(Normalize([]float32{1, 0}), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = idx.Search(Normalize([]float32{1, 0}), 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search([]float32{1}, 1)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}

func TestFlatIndexSearchTieBreakByID(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	for id := 0; id < 4; id++ {
		require.NoError(t, idx.Add(id, []float32{0, 1}))
	}

	hits, err := idx.Search([]float32{0, 1}, 4)
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, i, h.ID)
	}
}

func TestFlatIndexBinaryRoundTrip(t *testing.T) {
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add(0, Normalize([]float32{1, 2, 3})))
	require.NoError(t, idx.Add(1, Normalize([]float32{-1, 0, 4})))

	data, err := idx.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 16+4*3*2)

	loaded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dimension())
	assert.Equal(t, 2, loaded.Size())
	assert.Equal(t, idx.Vector(1), loaded.Vector(1))
}

func TestDecodeRejectsCorruptArtifacts(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(0, []float32{1, 0}))
	data, err := idx.MarshalBinary()
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-1])
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))

	_, err = Decode([]byte("not an index at all"))
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	data := make([]byte, 16)
	copy(data, magic[:])
	binary.LittleEndian.PutUint32(data[4:], formatVersion)
	binary.LittleEndian.PutUint32(data[8:], 1<<31)
	binary.LittleEndian.PutUint32(data[12:], 1<<31)

	_, err := Decode(data)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}
