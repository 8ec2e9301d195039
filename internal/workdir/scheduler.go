package workdir

import (
	"sync"
	"time"

	"github.com/drewdunne/scmpoll/internal/logging"
)

// Scheduler runs a Pruner periodically.
type Scheduler struct {
	pruner   *Pruner
	log      *logging.Logger
	ticker   *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

func NewScheduler(pruner *Pruner, interval time.Duration, log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{
		pruner: pruner,
		log:    log,
		ticker: time.NewTicker(interval),
		stop:   make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	// Run initial prune immediately
	go s.run()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.run()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) run() {
	removed, err := s.pruner.Prune()
	if err != nil {
		s.log.Error("pruning working folders", err)
	} else if removed > 0 {
		s.log.Infof("pruned %d stale working folders", removed)
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.stop)
	})
}
