package calculations

import (
	"github.com/rs/zerolog"
)

// PurgeJob removes expired entries from the calculation cache.
// It implements scheduler.Job and should run daily.
type PurgeJob struct {
	cache *Cache
	log   zerolog.Logger
}

// NewPurgeJob creates a new cache purge job.
func NewPurgeJob(cache *Cache, log zerolog.Logger) *PurgeJob {
	return &PurgeJob{
		cache: cache,
		log:   log.With().Str("job", "cache_purge").Logger(),
	}
}

// Name returns the job name.
func (j *PurgeJob) Name() string { return "cache_purge" }

// Run removes expired cache entries.
func (j *PurgeJob) Run() error {
	if err := j.cache.Purge(); err != nil {
		j.log.Error().Err(err).Msg("Failed to purge calculation cache")
		return err
	}
	return nil
}
