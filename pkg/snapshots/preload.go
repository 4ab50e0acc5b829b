package snapshots

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// DefaultPreloadJobs bounds concurrent fetches when Preload is given jobs <= 0.
const DefaultPreloadJobs = 4

// Preloaded serves snapshots fetched ahead of time and delegates everything
// else to the wrapped Source.
type Preloaded struct {
	Source

	mu    sync.RWMutex
	snaps map[string]*scene.Snapshot
}

// Preload fetches the snapshots of ids with at most jobs requests in flight.
// The first failure cancels the remaining fetches and is returned.
func Preload(ctx context.Context, src Source, ids []string, jobs int) (*Preloaded, error) {
	if jobs <= 0 {
		jobs = DefaultPreloadJobs
	}

	p := &Preloaded{Source: src, snaps: make(map[string]*scene.Snapshot, len(ids))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, id := range ids {
		g.Go(func() error {
			snap, err := src.Snapshot(gctx, id)
			if err != nil {
				return fmt.Errorf("preload %s: %w", id, err)
			}

			p.mu.Lock()
			p.snaps[id] = snap
			p.mu.Unlock()

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Snapshot returns the preloaded snapshot, falling back to the wrapped Source.
func (p *Preloaded) Snapshot(ctx context.Context, commitID string) (*scene.Snapshot, error) {
	p.mu.RLock()
	snap, ok := p.snaps[commitID]
	p.mu.RUnlock()

	if ok {
		return snap, nil
	}

	return p.Source.Snapshot(ctx, commitID)
}

// Len returns the number of preloaded snapshots.
func (p *Preloaded) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.snaps)
}
