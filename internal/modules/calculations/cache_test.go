package calculations

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/database"
)

type cachedStats struct {
	Symbols []string  `msgpack:"symbols"`
	Mu      []float64 `msgpack:"mu"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return NewCache(db, zerolog.Nop())
}

func TestCache_RoundTrip(t *testing.T) {
	cache := newTestCache(t)

	value := cachedStats{Symbols: []string{"AAA", "BBB"}, Mu: []float64{0.01, 0.02}}
	require.NoError(t, cache.Set("estimates", "k1", value, time.Hour))

	var got cachedStats
	require.True(t, cache.Get("estimates", "k1", &got))
	assert.Equal(t, value, got)
}

func TestCache_Miss(t *testing.T) {
	cache := newTestCache(t)

	var got cachedStats
	assert.False(t, cache.Get("estimates", "missing", &got))
}

func TestCache_ExpiredEntry(t *testing.T) {
	cache := newTestCache(t)

	value := cachedStats{Symbols: []string{"AAA"}}
	require.NoError(t, cache.Set("estimates", "k1", value, -time.Minute))

	var got cachedStats
	assert.False(t, cache.Get("estimates", "k1", &got))
}

func TestCache_Overwrite(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("estimates", "k1", cachedStats{Symbols: []string{"OLD"}}, time.Hour))
	require.NoError(t, cache.Set("estimates", "k1", cachedStats{Symbols: []string{"NEW"}}, time.Hour))

	var got cachedStats
	require.True(t, cache.Get("estimates", "k1", &got))
	assert.Equal(t, []string{"NEW"}, got.Symbols)
}

func TestCache_CategoriesAreIndependent(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("estimates", "k1", cachedStats{Symbols: []string{"AAA"}}, time.Hour))

	var got cachedStats
	assert.False(t, cache.Get("other", "k1", &got))
}

func TestCache_Purge(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("estimates", "expired", cachedStats{Symbols: []string{"AAA"}}, -time.Minute))
	require.NoError(t, cache.Set("estimates", "live", cachedStats{Symbols: []string{"BBB"}}, time.Hour))

	require.NoError(t, cache.Purge())

	var got cachedStats
	assert.False(t, cache.Get("estimates", "expired", &got))
	assert.True(t, cache.Get("estimates", "live", &got))
}
