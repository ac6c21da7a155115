package workerpool

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is one unit of background work. Jobs sharing a Key run in dispatch order on the same worker.
type Job struct {
	Key     string
	Handler func(ctx context.Context) error
}

// Stats is a point-in-time view of the pool counters.
type Stats struct {
	NumWorkers      int   `json:"num_workers"`
	QueueSize       int   `json:"queue_size"`
	ActiveWorkers   int   `json:"active_workers"`
	QueueDepth      int   `json:"queue_depth"`
	TotalDispatched int64 `json:"total_dispatched"`
	TotalProcessed  int64 `json:"total_processed"`
	TotalDropped    int64 `json:"total_dropped"`
	TotalErrors     int64 `json:"total_errors"`
}

// Pool runs jobs on a fixed set of workers, each with its own bounded queue.
type Pool struct {
	name       string
	numWorkers int
	queueSize  int
	workers    []*worker

	wg       sync.WaitGroup
	mu       sync.RWMutex
	started  bool
	stopped  bool
	stopOnce sync.Once

	dispatched atomic.Int64
	processed  atomic.Int64
	dropped    atomic.Int64
	errors     atomic.Int64
}

type worker struct {
	id         int
	queue      chan Job
	ctx        context.Context
	cancel     context.CancelFunc
	processing atomic.Bool
	pool       *Pool
}

// New creates a pool; name only tags log lines.
func New(name string, numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		name:       name,
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:     i,
			queue:  make(chan Job, p.queueSize),
			ctx:    workerCtx,
			cancel: cancel,
			pool:   p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[WORKER_POOL] %s started with %d workers, queue size: %d", p.name, p.numWorkers, p.queueSize)
}

// TryDispatch enqueues job without blocking. It reports false when the pool is
// not running or the target worker's queue is full.
func (p *Pool) TryDispatch(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started || p.stopped {
		p.dropped.Add(1)
		return false
	}

	shard := p.shardFor(job.Key)
	p.dispatched.Add(1)

	select {
	case p.workers[shard].queue <- job:
		return true
	default:
		p.dropped.Add(1)
		logrus.Warnf("[WORKER_POOL] %s worker %d queue full, dropping job for %s", p.name, shard, job.Key)
		return false
	}
}

// Stop closes every queue and waits until the queued jobs have run.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		started := p.started
		p.mu.Unlock()
		if !started {
			return
		}

		logrus.Infof("[WORKER_POOL] %s stopping workers...", p.name)
		for _, w := range p.workers {
			close(w.queue)
		}
		p.wg.Wait()
		for _, w := range p.workers {
			w.cancel()
		}
		logrus.Infof("[WORKER_POOL] %s all workers stopped", p.name)
	})
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		TotalDispatched: p.dispatched.Load(),
		TotalProcessed:  p.processed.Load(),
		TotalDropped:    p.dropped.Load(),
		TotalErrors:     p.errors.Load(),
	}
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		if w.processing.Load() {
			stats.ActiveWorkers++
		}
		stats.QueueDepth += len(w.queue)
	}
	return stats
}

// run drains the queue until it is closed, so Stop never loses an accepted job.
func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range w.queue {
		w.execute(job)
	}
}

func (w *worker) execute(job Job) {
	w.processing.Store(true)
	defer func() {
		if r := recover(); r != nil {
			w.pool.errors.Add(1)
			logrus.Errorf("[WORKER_POOL] %s worker %d panic for %s: %v", w.pool.name, w.id, job.Key, r)
		}
		w.processing.Store(false)
		w.pool.processed.Add(1)
	}()

	if err := job.Handler(w.ctx); err != nil {
		w.pool.errors.Add(1)
		logrus.WithError(err).Warnf("[WORKER_POOL] %s worker %d job failed for %s", w.pool.name, w.id, job.Key)
	}
}
