package store

import (
	"encoding/json"
	"strings"
	"sync"

	"studyhub/pkg/logger"
)

// watchBuffer bounds the per-watcher delivery channel. When a consumer
// falls behind, the oldest queued snapshot is evicted to make room for
// the newest, so the consumer skips intermediate states but always
// observes the final one.
const watchBuffer = 16

// Subscription is a live view over one subtree. Every mutation touching
// the subtree (or any ancestor of it) delivers a fresh full snapshot on
// Updates. Close it exactly once; Updates is closed afterwards.
type Subscription struct {
	path    string
	updates chan json.RawMessage

	once sync.Once
}

// Updates yields full-subtree snapshots, starting with the current state
// at subscribe time. Missing subtrees deliver JSON null.
func (s *Subscription) Updates() <-chan json.RawMessage { return s.updates }

// Path returns the watched path.
func (s *Subscription) Path() string { return s.path }

// Close detaches the subscription and closes Updates.
func (s *Subscription) Close() {
	s.once.Do(func() {
		watchMu.Lock()
		for i, w := range watchers {
			if w == s {
				watchers = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
		// closing under the lock keeps notify from sending on a
		// closed channel
		close(s.updates)
		watchMu.Unlock()
		watchersGauge.Dec()
	})
}

var (
	watchMu  sync.Mutex
	watchers []*Subscription
)

// Watch registers a subscription on path and synchronously delivers the
// current snapshot as the first update.
func Watch(path string) (*Subscription, error) {
	path = CleanPath(path)
	snap, err := GetRaw(path)
	if err != nil {
		return nil, err
	}
	s := &Subscription{
		path:    path,
		updates: make(chan json.RawMessage, watchBuffer),
	}
	s.updates <- snap
	watchMu.Lock()
	watchers = append(watchers, s)
	watchMu.Unlock()
	watchersGauge.Inc()
	return s, nil
}

// related reports whether a mutation at changed affects the subtree at
// watched: equal paths, changed inside watched, or watched inside changed
// (replacing a parent rewrites every child view).
func related(watched, changed string) bool {
	if watched == changed || watched == "" || changed == "" {
		return true
	}
	return strings.HasPrefix(changed, watched+"/") ||
		strings.HasPrefix(watched, changed+"/")
}

func notify(changed string) {
	watchMu.Lock()
	defer watchMu.Unlock()
	for _, w := range watchers {
		if !related(w.path, changed) {
			continue
		}
		snap, err := GetRaw(w.path)
		if err != nil {
			logger.Warn("watch_snapshot_failed", "path", w.path, "error", err)
			continue
		}
		select {
		case w.updates <- snap:
		default:
			// full buffer: evict the oldest snapshot so the fresh
			// one always lands
			select {
			case <-w.updates:
				watchDrops.Inc()
			default:
			}
			select {
			case w.updates <- snap:
			default:
			}
		}
	}
}

func closeAllWatches() {
	watchMu.Lock()
	all := watchers
	watchers = nil
	for _, w := range all {
		w.once.Do(func() {
			close(w.updates)
		})
	}
	watchMu.Unlock()
	for range all {
		watchersGauge.Dec()
	}
}
