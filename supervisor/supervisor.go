package supervisor

import (
	"context"
	"sync"
	"time"

	log "github.com/freundallein/taskpoller/backend/chassis/logging"
)

// Cleaner drops journal rows older than expiration seconds.
type Cleaner interface {
	CleanOldDispatches(ctx context.Context, expiration int) (int, error)
}

// Config ...
type Config struct {
	Repository Cleaner
	Expiration int
	Period     time.Duration
}

func dbCleaner(ctx context.Context, cfg *Config, group *sync.WaitGroup) {
	defer group.Done()
	log.WithFields(log.Fields{
		"event": "start_db_cleaner",
	}).Info("starting db cleaner with ", cfg.Expiration, "s expiration time")
	repo := cfg.Repository
	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"event":  "ctx_canceled",
				"worker": "db_cleaner",
			}).Info("exit goroutine")
			return
		case <-time.After(cfg.Period):
			cleaned, err := repo.CleanOldDispatches(ctx, cfg.Expiration)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "clean_table_failed",
					"worker": "db_cleaner",
				}).Error(err)
				continue
			}
			log.WithFields(log.Fields{
				"event":  "clean_table",
				"worker": "db_cleaner",
			}).Debug("cleaned rows: ", cleaned)
		}
	}
}

// Run starts the journal cleaner; it is a no-op unless Expiration is positive.
func Run(ctx context.Context, cfg *Config, group *sync.WaitGroup) {
	if cfg.Expiration <= 0 || cfg.Repository == nil {
		return
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	group.Add(1)
	go dbCleaner(ctx, cfg, group)
}
