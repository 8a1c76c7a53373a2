// Package jobs runs mining operations in the background on a bounded pool of
// workers and tracks their progress for polling.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Set of error variables for the job manager.
var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("mining queue is full")
	ErrShutdown    = errors.New("job manager is shutting down")
)

// maxAttempts is the number of progress samples kept per job.
const maxAttempts = 100

// State represents the stage of a job. Done and Failed are final.
type State string

// Set of job states.
const (
	Running State = "running"
	Done    State = "done"
	Failed  State = "failed"
)

// Miner represents the behavior required to mine a block.
type Miner interface {
	MineNewBlock(ctx context.Context, miner string, onProgress database.ProgressFunc) (database.Block, error)
}

// Result is the outcome of a successful job.
type Result struct {
	Index      uint64 `json:"index"`
	Hash       string `json:"hash"`
	Nonce      uint64 `json:"nonce"`
	Difficulty uint   `json:"difficulty"`
}

// Status is a point in time copy of a job.
type Status struct {
	ID       string     `json:"job_id"`
	Miner    string     `json:"miner"`
	State    State      `json:"state"`
	Attempts []string   `json:"attempts"`
	Result   *Result    `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
}

// Config represents the settings for the manager.
type Config struct {
	Workers    int
	QueueDepth int
	OnMined    func(jobID string, block database.Block)
	EvHandler  func(v string, args ...any)
}

// =============================================================================

// Manager owns the registry of jobs and the pool of mining workers.
type Manager struct {
	miner     Miner
	onMined   func(jobID string, block database.Block)
	evHandler func(v string, args ...any)

	mu    sync.RWMutex
	jobs  map[string]*job
	order []string

	queue   chan *job
	updates chan update
	shut    chan struct{}
	once    sync.Once
	workers sync.WaitGroup
	collect sync.WaitGroup
}

// New constructs a manager and starts the workers.
func New(miner Miner, cfg Config) *Manager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 10
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	m := Manager{
		miner:     miner,
		onMined:   cfg.OnMined,
		evHandler: ev,
		jobs:      make(map[string]*job),
		queue:     make(chan *job, cfg.QueueDepth),
		updates:   make(chan update, 256),
		shut:      make(chan struct{}),
	}

	m.collect.Add(1)
	go func() {
		defer m.collect.Done()
		m.collector()
	}()

	m.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func(id int) {
			defer m.workers.Done()
			m.worker(id)
		}(i)
	}

	return &m
}

// Start registers a new job for the miner address and queues it. It returns
// without waiting for the job to run.
func (m *Manager) Start(miner string) (string, error) {
	if miner == "" || strings.ContainsAny(miner, " \t\r\n") {
		return "", fmt.Errorf("miner address %q: %w", miner, database.ErrInvalidTransaction)
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := job{
		id:      uuid.NewString(),
		miner:   miner,
		state:   Running,
		started: time.Now().UTC(),
		ctx:     ctx,
		cancel:  cancel,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.shut:
		cancel()
		return "", ErrShutdown
	default:
	}

	select {
	case m.queue <- &j:
	default:
		cancel()
		return "", ErrQueueFull
	}

	m.jobs[j.id] = &j
	m.order = append(m.order, j.id)

	m.evHandler("jobs: start: job[%s] miner[%s]", j.id, miner)

	return j.id, nil
}

// Status returns a copy of the job.
func (m *Manager) Status(jobID string) (Status, error) {
	m.mu.RLock()
	j, exists := m.jobs[jobID]
	m.mu.RUnlock()

	if !exists {
		return Status{}, fmt.Errorf("job[%s]: %w", jobID, ErrJobNotFound)
	}

	return j.status(), nil
}

// List returns a copy of every job in the order they were started.
func (m *Manager) List() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]Status, 0, len(m.order))
	for _, id := range m.order {
		list = append(list, m.jobs[id].status())
	}

	return list
}

// Cancel stops the job. A job that already finished is left as is.
func (m *Manager) Cancel(jobID string) error {
	m.mu.RLock()
	j, exists := m.jobs[jobID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job[%s]: %w", jobID, ErrJobNotFound)
	}

	m.evHandler("jobs: cancel: job[%s]", jobID)
	j.cancel()

	return nil
}

// Shutdown cancels every job and waits for the workers to stop.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.evHandler("jobs: shutdown: started")
		defer m.evHandler("jobs: shutdown: completed")

		m.mu.Lock()
		close(m.shut)
		for _, j := range m.jobs {
			j.cancel()
		}
		m.mu.Unlock()

		m.workers.Wait()

		// Fail the jobs that never reached a worker.
		for drained := false; !drained; {
			select {
			case j := <-m.queue:
				m.updates <- update{job: j, outcome: &outcome{err: ErrShutdown}}
			default:
				drained = true
			}
		}

		close(m.updates)
		m.collect.Wait()
	})
}

// =============================================================================

// worker runs queued jobs one at a time.
func (m *Manager) worker(id int) {
	m.evHandler("jobs: worker[%d]: G started", id)
	defer m.evHandler("jobs: worker[%d]: G completed", id)

	for {
		select {
		case j := <-m.queue:
			m.run(j)
		case <-m.shut:
			return
		}
	}
}

// run mines a block for the job. Progress samples and the final outcome go
// through the updates channel so they are applied in order.
func (m *Manager) run(j *job) {
	defer j.cancel()

	if err := j.ctx.Err(); err != nil {
		m.updates <- update{job: j, outcome: &outcome{err: err}}
		return
	}

	onProgress := func(hash string, nonce uint64) {
		m.updates <- update{job: j, sample: fmt.Sprintf("%d:%s", nonce, hash)}
	}

	block, err := m.miner.MineNewBlock(j.ctx, j.miner, onProgress)
	if err != nil {
		m.updates <- update{job: j, outcome: &outcome{err: err}}
		return
	}

	m.updates <- update{job: j, outcome: &outcome{block: block}}

	if m.onMined != nil {
		m.onMined(j.id, block)
	}
}

// collector applies progress samples and outcomes to the jobs.
func (m *Manager) collector() {
	for u := range m.updates {
		if u.outcome == nil {
			u.job.addAttempt(u.sample)
			continue
		}

		u.job.finish(*u.outcome)
		if u.outcome.err != nil {
			m.evHandler("jobs: job[%s]: failed: %s", u.job.id, u.outcome.err)
			continue
		}
		m.evHandler("jobs: job[%s]: done: blk[%d] hash[%s]", u.job.id, u.outcome.block.Index(), u.outcome.block.Hash())
	}
}
