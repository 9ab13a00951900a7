package writequeue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("write_queue_closed")

// Job is one persistence write. Run executes on the queue goroutine and is
// never called concurrently with another job of the same queue.
type Job struct {
	Label string
	// Key is the idempotency key carried by the write, logged on failure.
	Key string
	Run func(ctx context.Context) (any, error)
	// Retry allows transient failures to be retried. Only set it for writes
	// that the store absorbs on replay.
	Retry bool
	// Settle runs on the queue goroutine after the final attempt, before the
	// next job starts.
	Settle func(result any, err error)
}

type Options struct {
	RetryMax  int
	RetryBase time.Duration
	Timeout   time.Duration
}

// Queue executes jobs strictly one at a time in enqueue order.
type Queue struct {
	name string
	opts Options

	mu     sync.Mutex
	jobs   []*Ticket
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func New(name string, opts Options) *Queue {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 200 * time.Millisecond
	}
	q := &Queue{
		name:   name,
		opts:   opts,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue appends a job and returns immediately.
func (q *Queue) Enqueue(job Job) *Ticket {
	t := &Ticket{job: job, done: make(chan struct{})}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		t.finish(nil, ErrClosed)
		return t
	}
	q.jobs = append(q.jobs, t)
	q.mu.Unlock()

	metricQueuedTotal.Add(1)
	metricQueueDepth.Add(1)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return t
}

// Len reports jobs not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Drain blocks until every job enqueued so far has settled.
func (q *Queue) Drain(ctx context.Context) error {
	t := q.Enqueue(Job{Label: "drain", Run: func(context.Context) (any, error) { return nil, nil }})
	_, err := t.Wait(ctx)
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Close stops accepting jobs. Jobs already queued still run.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

func (q *Queue) next() (*Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	t := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return t, true
}

func (q *Queue) worker() {
	for {
		for {
			t, ok := q.next()
			if !ok {
				break
			}
			metricQueueDepth.Add(-1)
			q.process(t)
		}
		select {
		case <-q.signal:
		case <-q.done:
			// Flush whatever raced in before Close.
			for {
				t, ok := q.next()
				if !ok {
					return
				}
				metricQueueDepth.Add(-1)
				q.process(t)
			}
		}
	}
}

func (q *Queue) process(t *Ticket) {
	job := t.job
	var result any
	attempt := 0
	op := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), q.opts.Timeout)
		defer cancel()
		res, err := job.Run(ctx)
		if err != nil {
			if !job.Retry {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}
	var err error
	if job.Retry && q.opts.RetryMax > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = q.opts.RetryBase
		b.MaxElapsedTime = 0
		err = backoff.RetryNotify(op, backoff.WithMaxRetries(b, uint64(q.opts.RetryMax)), func(err error, d time.Duration) {
			metricRetryTotal.Add(1)
			log.Warn().Err(err).Str("queue", q.name).Str("job", job.Label).Str("idempotency_key", job.Key).Dur("retry_in", d).Msg("write retry")
		})
	} else {
		err = op()
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if err != nil {
		metricFailedTotal.Add(1)
		log.Error().Err(err).Str("queue", q.name).Str("job", job.Label).Str("idempotency_key", job.Key).Int("attempts", attempt).Msg("write failed")
	} else {
		metricDoneTotal.Add(1)
	}
	if job.Settle != nil {
		job.Settle(result, err)
	}
	t.finish(result, err)
}

// Ticket resolves once its job has settled.
type Ticket struct {
	job    Job
	done   chan struct{}
	result any
	err    error
}

func (t *Ticket) finish(result any, err error) {
	t.result = result
	t.err = err
	close(t.done)
}

func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the job settles or ctx ends.
func (t *Ticket) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
