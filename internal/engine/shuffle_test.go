package engine

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quiz-engine-service/internal/domain"
)

// countingSource wraps a Source and counts draws.
type countingSource struct {
	Source
	draws int
}

func (c *countingSource) Next(min, max int) (int, error) {
	c.draws++
	return c.Source.Next(min, max)
}

type failingSource struct{}

func (failingSource) Next(int, int) (int, error) { return 0, errors.New("boom") }

func TestShuffleIsPermutation(t *testing.T) {
	for n := 0; n <= 12; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i * 7
		}
		src := &countingSource{Source: NewLCG(uint32(n + 1))}
		shuffled := append([]int(nil), items...)
		require.NoError(t, Shuffle(src, shuffled))

		sorted := append([]int(nil), shuffled...)
		sort.Ints(sorted)
		assert.Equal(t, items, sorted, "n=%d", n)

		wantDraws := n
		if n <= 1 {
			wantDraws = 0
		}
		assert.Equal(t, wantDraws, src.draws, "draws for n=%d", n)
	}
}

func TestShuffleDeterministicForSeed(t *testing.T) {
	a := []string{"a", "b", "c", "d", "e", "f"}
	b := append([]string(nil), a...)
	require.NoError(t, Shuffle(NewLCG(5), a))
	require.NoError(t, Shuffle(NewLCG(5), b))
	assert.Equal(t, a, b)
}

func TestShufflePropagatesSourceError(t *testing.T) {
	err := Shuffle(failingSource{}, []int{1, 2, 3})
	require.Error(t, err)
}

func TestSampleDistinctWithoutReplacement(t *testing.T) {
	pool := make([]int, 20)
	for i := range pool {
		pool[i] = i
	}
	orig := append([]int(nil), pool...)

	got, err := Sample(NewLCG(11), pool, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)

	seen := map[int]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 20)
	}
	assert.Equal(t, orig, pool, "pool must not be modified")
}

func TestSampleInsufficient(t *testing.T) {
	_, err := Sample(NewLCG(1), []int{1, 2}, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientQuestions)
}

func TestSampleWholePool(t *testing.T) {
	pool := []string{"x", "y", "z"}
	got, err := Sample(NewLCG(3), pool, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, pool, got)
}
