package recorder

import (
	"sync"

	"github.com/rs/zerolog"
)

// syncer is satisfied by both CsvAppender and JsonlAppender.
type syncer interface {
	FlushAndSync() error
}

// Guard owns every writer opened for a run and guarantees a durable flush
// of all of them on shutdown, regardless of which ones ended up being
// used. Mirrors the teacher's pattern of a single shutdown path flushing
// every sink (metrics.Serve's http.Server, paper.JSONLRecorder.Close).
type Guard struct {
	mu      sync.Mutex
	log     zerolog.Logger
	writers map[string]syncer
}

// NewGuard returns an empty Guard; writers register themselves via Track.
func NewGuard(log zerolog.Logger) *Guard {
	return &Guard{log: log, writers: make(map[string]syncer)}
}

// Track registers a writer under name so FlushAll will sync it on
// shutdown. Safe to call multiple times for the same name (last wins).
func (g *Guard) Track(name string, w syncer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writers[name] = w
}

// FlushAll durably flushes every tracked writer. Best-effort: a failure on
// one file is logged, not propagated, so that one bad disk
// sector does not prevent the rest of the run's data from being saved.
func (g *Guard) FlushAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, w := range g.writers {
		if err := w.FlushAndSync(); err != nil {
			g.log.Warn().Err(err).Str("file", name).Msg("flush on shutdown failed")
		}
	}
}

