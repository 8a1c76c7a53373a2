package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// update carries either a progress sample or the final outcome of a job.
type update struct {
	job     *job
	sample  string
	outcome *outcome
}

type outcome struct {
	block database.Block
	err   error
}

// job is the record of a single mining operation. The mutable fields are
// guarded by the job's own mutex.
type job struct {
	id      string
	miner   string
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	state    State
	attempts []string
	result   *Result
	err      string
	finished time.Time
}

func (j *job) addAttempt(sample string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != Running {
		return
	}

	j.attempts = append(j.attempts, sample)
	if len(j.attempts) > maxAttempts {
		j.attempts = j.attempts[len(j.attempts)-maxAttempts:]
	}
}

func (j *job) finish(o outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != Running {
		return
	}
	j.finished = time.Now().UTC()

	if o.err != nil {
		j.state = Failed
		j.err = o.err.Error()
		if errors.Is(o.err, context.Canceled) {
			j.err = "job cancelled"
		}
		return
	}

	j.state = Done
	j.result = &Result{
		Index:      o.block.Index(),
		Hash:       o.block.Hash(),
		Nonce:      o.block.Nonce(),
		Difficulty: o.block.Difficulty(),
	}
}

func (j *job) status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Status{
		ID:       j.id,
		Miner:    j.miner,
		State:    j.state,
		Attempts: append([]string{}, j.attempts...),
		Error:    j.err,
		Started:  j.started,
	}

	if j.result != nil {
		r := *j.result
		s.Result = &r
	}

	if !j.finished.IsZero() {
		f := j.finished
		s.Finished = &f
	}

	return s
}
