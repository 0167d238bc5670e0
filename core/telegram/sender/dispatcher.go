package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the worker owning the key has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the per-worker queue capacity.
	QueueSize int
	Workers   int
	// MaxRetries counts attempts after the first one.
	MaxRetries int
	// RetryBackoff is the first retry delay; it doubles on every attempt.
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2+len(extra))
	attrs = append(attrs, slog.String("action", j.action))
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return append(attrs, extra...)
}

// Dispatcher runs outbound Telegram calls on a fixed set of workers. Jobs that
// share a key (a chat id) always land on the same worker and therefore run in
// the order they were enqueued.
type Dispatcher struct {
	opts   Options
	queues []chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewDispatcher starts the workers. Zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:   opts,
		queues: make([]chan job, opts.Workers),
	}
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, opts.QueueSize)
		go d.worker(d.queues[i])
	}
	return d
}

// Enqueue schedules run on the worker owning key. run may be called more than
// once when the first attempt fails with a transient error.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queues[d.shard(key)] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shard(key int64) int {
	n := uint64(len(d.queues))
	if key < 0 {
		return int(uint64(-key) % n)
	}
	return int(uint64(key) % n)
}

// ErrorCount returns the number of jobs that finally failed.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// SentCount returns the number of jobs that finally succeeded.
func (d *Dispatcher) SentCount() uint64 {
	return d.sent.Load()
}

// Close stops accepting jobs and waits until every queued job has run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(queue <-chan job) {
	defer d.wg.Done()
	for j := range queue {
		if err := d.execute(j); err != nil {
			d.failed.Add(1)
		} else {
			d.sent.Add(1)
		}
	}
}

// execute runs j until it succeeds, fails permanently, runs out of attempts
// or exceeds MaxDuration.
func (d *Dispatcher) execute(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	logger.Debug(j.ctx, "tg.sender", "send.start", j.attrs()...)

	for attempt := 1; ; attempt++ {
		err := j.run()
		if err == nil {
			logger.Debug(j.ctx, "tg.sender", "send.success", j.attrs(
				slog.String("status", "ok"),
				slog.Int("attempts", attempt),
				slog.Duration("elapsed", logger.Took(start)),
			)...)
			return nil
		}

		delay, retry := d.retryDelay(err, attempt)
		if !retry || attempt >= attempts {
			logFailure(j, err, attempt, start)
			return err
		}

		logger.Debug(j.ctx, "tg.sender", "send.retry", j.attrs(
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err_code", classifyError(err)),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logFailure(j, errors.Join(err, ctx.Err()), attempt, start)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// retryDelay reports whether err is worth another attempt and how long to
// wait first. Telegram flood control dictates its own delay.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	if after, ok := floodWait(err); ok {
		return after, true
	}
	if !netutil.ShouldRetry(err) {
		return 0, false
	}
	return d.opts.RetryBackoff << (attempt - 1), true
}

func logFailure(j job, err error, attempts int, start time.Time) {
	logger.Error(j.ctx, "tg.sender", "send.fail", j.attrs(
		slog.String("status", "fail"),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", logger.Took(start)),
		slog.String("err", logger.SanitizeLimit(RedactToken(err.Error()), 256)),
		slog.String("err_code", classifyError(err)),
	)...)
}
