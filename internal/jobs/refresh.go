package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/pairing"
)

// Refresher is satisfied by *talks.CachedSource.
type Refresher interface {
	Refresh(ctx context.Context) ([]model.Talk, error)
}

// TalkRefreshJob keeps the cached talk list warm so voters never pay for an
// upstream fetch, and logs when the list changes under running sessions.
type TalkRefreshJob struct {
	source   Refresher
	interval time.Duration
	timeout  time.Duration
	done     chan struct{}

	mu          sync.Mutex
	fingerprint string
}

func NewTalkRefreshJob(source Refresher, interval, timeout time.Duration) *TalkRefreshJob {
	return &TalkRefreshJob{
		source:   source,
		interval: interval,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

func (j *TalkRefreshJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("talk refresh job started")
}

func (j *TalkRefreshJob) Stop() {
	close(j.done)
	log.Info().Msg("talk refresh job stopped")
}

// Fingerprint returns the fingerprint seen on the last successful refresh.
func (j *TalkRefreshJob) Fingerprint() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fingerprint
}

func (j *TalkRefreshJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.refresh()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.refresh()
		}
	}
}

func (j *TalkRefreshJob) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	list, err := j.source.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh talks")
		return
	}

	fingerprint := pairing.Fingerprint(model.TalkIDs(list))

	j.mu.Lock()
	previous := j.fingerprint
	j.fingerprint = fingerprint
	j.mu.Unlock()

	switch {
	case previous == "":
		log.Info().Int("count", len(list)).Str("fingerprint", fingerprint).Msg("talks loaded")
	case previous != fingerprint:
		log.Warn().
			Int("count", len(list)).
			Str("previous", previous).
			Str("fingerprint", fingerprint).
			Msg("talk list changed, existing voting sessions will restart")
	}
}
