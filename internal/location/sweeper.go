package location

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically evicts expired cache entries. It is owned by the
// process lifecycle: started at init, stopped at shutdown, independent
// of any request.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
	log      *logrus.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(cache *Cache, interval time.Duration, log *logrus.Logger) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.cache.Sweep()
			if removed > 0 && s.log != nil {
				s.log.WithFields(logrus.Fields{
					"component": "sweeper",
					"removed":   removed,
					"remaining": s.cache.Len(),
				}).Info("evicted stale cache entries")
			}
		case <-s.stop:
			return
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
