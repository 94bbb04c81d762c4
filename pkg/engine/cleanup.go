package engine

import (
	"context"
	"time"
)

// RunSweeper purges idle sessions on a fixed period until ctx is canceled.
// Intended to run in its own goroutine for the process lifetime.
func (e *Engine) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepPeriod)
	defer ticker.Stop()

	e.logger.Info("cleanup sweeper running",
		"period", e.cfg.SweepPeriod, "idle_timeout", e.cfg.IdleTimeout)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("cleanup sweeper stopped")
			return
		case <-ticker.C:
			e.SweepExpired()
		}
	}
}

// SweepExpired purges every session idle past the configured timeout,
// regardless of lifecycle state, along with its audio artifacts. It returns
// the number of sessions purged.
//
// A session whose exclusivity token is held has a turn in flight and is by
// definition live; TryAcquire skips it and the next pass reconsiders it.
// Idleness is rechecked under the token because a turn may have committed
// between the snapshot and the acquisition.
func (e *Engine) SweepExpired() int {
	cutoff := e.now().Add(-e.cfg.IdleTimeout)
	purged := 0

	for _, id := range e.store.IdleOlderThan(cutoff) {
		release, ok := e.store.TryAcquire(id)
		if !ok {
			continue
		}
		sess, err := e.store.Get(id)
		if err != nil || !sess.LastActivity.Before(cutoff) {
			release()
			continue
		}
		// Artifacts go first: if the purge dies partway, the session is
		// still in the store and a later pass reclaims the rest.
		removed := e.artifacts.Purge(id)
		e.store.Delete(id)
		release()

		e.events.Publish(Event{SessionID: id, Type: EventSessionPurged})
		e.events.CloseSession(id)
		e.metrics.SessionRemoved()
		e.logger.Info("session purged",
			"session_id", id,
			"state", sess.State,
			"last_activity", sess.LastActivity,
			"artifacts_removed", removed)
		purged++
	}

	if purged > 0 {
		e.metrics.SessionsPurged(purged)
	}
	return purged
}
