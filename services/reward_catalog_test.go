package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRewardCatalog_Default(t *testing.T) {
	catalog, err := NewRewardCatalog(DefaultRewardNames)
	require.NoError(t, err)

	assert.Equal(t, len(DefaultRewardNames), catalog.Len())
	assert.Equal(t, "Alya", catalog.At(0).Name)
	assert.Equal(t, "alya", catalog.At(0).Code)
	assert.True(t, catalog.Contains("Trisha"))
	assert.False(t, catalog.Contains("trisha"))
}

func TestNewRewardCatalog_Normalises(t *testing.T) {
	catalog, err := NewRewardCatalog([]string{"  gold star ", "SILVER"})
	require.NoError(t, err)

	assert.Equal(t, "Gold Star", catalog.At(0).Name)
	assert.Equal(t, "gold-star", catalog.At(0).Code)
	assert.Equal(t, "Silver", catalog.At(1).Name)
}

func TestNewRewardCatalog_Rejects(t *testing.T) {
	_, err := NewRewardCatalog(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewRewardCatalog([]string{"Alya", "   "})
	assert.Error(t, err)

	_, err = NewRewardCatalog([]string{"Alya", "alya "})
	assert.ErrorIs(t, err, ErrDuplicateReward)
}

func TestRewardCatalog_RewardsIsACopy(t *testing.T) {
	catalog, err := NewRewardCatalog([]string{"Alya", "Cathy"})
	require.NoError(t, err)

	rewards := catalog.Rewards()
	rewards[0].Name = "Changed"
	assert.Equal(t, "Alya", catalog.At(0).Name)
}

func TestRewardSelector_PinnedSource(t *testing.T) {
	catalog, err := NewRewardCatalog([]string{"Alya", "Cathy", "Daisy"})
	require.NoError(t, err)

	var gotN int
	selector := NewRewardSelectorWithSource(catalog, func(n int) int {
		gotN = n
		return 2
	})
	assert.Equal(t, "Daisy", selector.Pick().Name)
	assert.Equal(t, 3, gotN)
	assert.Same(t, catalog, selector.Catalog())
}

func TestRewardSelector_CoversCatalog(t *testing.T) {
	catalog, err := NewRewardCatalog([]string{"Alya", "Cathy", "Daisy", "Eli"})
	require.NoError(t, err)
	selector := NewRewardSelector(catalog)

	const draws = 8000
	seen := make(map[string]int)
	for i := 0; i < draws; i++ {
		r := selector.Pick()
		require.True(t, catalog.Contains(r.Name))
		seen[r.Name]++
	}

	// Expected 2000 each; the bounds are far outside normal variance.
	require.Len(t, seen, catalog.Len())
	for name, n := range seen {
		assert.InDelta(t, draws/catalog.Len(), n, 400, "reward %s", name)
	}
}
