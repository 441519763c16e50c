package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/blueprint-sub-translator/pkg/log"
)

// Maintenance periodically prunes terminal jobs older than the
// retention window, together with their glossary embeddings.
type Maintenance struct {
	repo      Repository
	cron      *cron.Cron
	cronExpr  string
	retention time.Duration
}

func NewMaintenance(repo Repository, c *cron.Cron, cronExpr string, retention time.Duration) Maintenance {
	return Maintenance{
		repo:      repo,
		cron:      c,
		cronExpr:  cronExpr,
		retention: retention,
	}
}

var pruneGroup singleflight.Group

const sweepTimeout = 5 * time.Minute

// Schedule registers the prune sweep on the cron engine. An empty
// expression disables the sweep. Overlapping fires collapse into one
// running sweep.
func (m Maintenance) Schedule(_ context.Context) error {
	if m.cronExpr == "" {
		log.Info("job pruning disabled: no cron expression configured")
		return nil
	}

	_, err := m.cron.AddFunc(m.cronExpr, m.sweep)
	return err
}

// sweep prunes one batch of expired terminal jobs. Each run carries its
// own bounded context; tying it to a caller's lifetime would cancel a
// sweep that fires during shutdown.
func (m Maintenance) sweep() {
	_, _, _ = pruneGroup.Do("prune", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		cutoff := time.Now().UTC().Add(-m.retention)
		pruned, err := m.repo.PruneTerminal(ctx, cutoff)
		if err != nil {
			log.Error("Failed to prune terminal jobs: %v", err)
			return nil, err
		}
		if pruned > 0 {
			log.Info("Pruned %d terminal jobs older than %s", pruned, m.retention)
		}
		return nil, nil
	})
}
