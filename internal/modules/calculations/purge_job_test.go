package calculations

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeJob_Run(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Set("estimates", "expired", cachedStats{Symbols: []string{"AAA"}}, -time.Minute))
	require.NoError(t, cache.Set("estimates", "live", cachedStats{Symbols: []string{"BBB"}}, time.Hour))

	job := NewPurgeJob(cache, zerolog.Nop())
	assert.Equal(t, "cache_purge", job.Name())
	require.NoError(t, job.Run())

	var got cachedStats
	assert.False(t, cache.Get("estimates", "expired", &got))
	assert.True(t, cache.Get("estimates", "live", &got))
}
