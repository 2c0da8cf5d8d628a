package worker

import (
	"context"
	"sync"

	"github.com/raoulx24/rsync-backup/internal/logging"
)

// Pool owns one Worker per job name.
type Pool struct {
	mu      sync.Mutex
	ctx     context.Context
	run     RunFunc
	log     logging.Logger
	workers map[string]*poolEntry
	wg      sync.WaitGroup
}

type poolEntry struct {
	w      *Worker
	cancel context.CancelFunc
}

// NewPool returns a pool whose workers live until ctx is done.
func NewPool(ctx context.Context, run RunFunc, log logging.Logger) *Pool {
	return &Pool{ctx: ctx, run: run, log: log, workers: map[string]*poolEntry{}}
}

// Sync starts workers for new names and stops those no longer listed.
// A stopped worker finishes its current run first.
func (p *Pool) Sync(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
		if _, ok := p.workers[n]; ok {
			continue
		}
		stop, cancel := context.WithCancel(p.ctx)
		w := New(n, p.run, p.log)
		p.workers[n] = &poolEntry{w: w, cancel: cancel}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.loop(stop, p.ctx)
		}()
	}

	for n, e := range p.workers {
		if !keep[n] {
			p.log.Info("removing worker", "job", n)
			e.cancel()
			delete(p.workers, n)
		}
	}
}

// Submit routes j to its worker. Jobs without a worker are dropped.
func (p *Pool) Submit(j Job) bool {
	p.mu.Lock()
	e, ok := p.workers[j.Name]
	p.mu.Unlock()

	if !ok {
		p.log.Warn("no worker for job", "job", j.Name)
		return false
	}
	e.w.Submit(j)
	return true
}

// Wait blocks until every worker has stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}
