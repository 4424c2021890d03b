package subset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndices_Lexicographic(t *testing.T) {
	got, err := Indices(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{0, 1}, {0, 2}, {0, 3},
		{1, 2}, {1, 3},
		{2, 3},
	}, got)
}

func TestIndices_EdgeSizes(t *testing.T) {
	ctx := context.Background()

	all, err := Indices(ctx, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}}, all)

	singles, err := Indices(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0}, {1}, {2}}, singles)

	empty, err := Indices(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, empty, 1)
	assert.Empty(t, empty[0])
}

func TestIndices_InvalidSize(t *testing.T) {
	_, err := Indices(context.Background(), 3, 4)
	assert.Error(t, err)

	_, err = Indices(context.Background(), 3, -1)
	assert.Error(t, err)
}

func TestIndices_CountMatchesBinomial(t *testing.T) {
	for k := 0; k <= 9; k++ {
		got, err := Indices(context.Background(), 9, k)
		require.NoError(t, err)
		want, ok := Count(9, k)
		require.True(t, ok)
		assert.Equal(t, want, int64(len(got)), "k=%d", k)
	}
}

func TestEnumerator_Timeout(t *testing.T) {
	e := Enumerator{Timeout: time.Millisecond}

	start := time.Now()
	got, err := e.Indices(context.Background(), 60, 30)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrTimeout))

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 60, te.N)
	assert.Equal(t, 30, te.K)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEnumerator_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Enumerator{Timeout: time.Minute}.Indices(ctx, 60, 30)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCount(t *testing.T) {
	c, ok := Count(9, 4)
	assert.True(t, ok)
	assert.Equal(t, int64(126), c)

	c, ok = Count(5, 0)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c)

	c, ok = Count(3, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(0), c)

	_, ok = Count(200, 100)
	assert.False(t, ok)
}
