// Package config holds the engine-wide configuration enumerated in
// spec.md §6, populated exclusively through functional options (the same
// pattern the teacher uses for Streamsql.Option) — there is no file or
// environment loader in scope.
package config

import "time"

// Config is the full set of knobs the embedding API exposes at Open() time.
type Config struct {
	// NWorkerThreads is the size of the fixed worker pool. Default 2.
	NWorkerThreads int
	// QueueCapacityRows bounds every RowQueue/WindowQueue by row count.
	QueueCapacityRows int
	// QueueCapacityBytes bounds every queue by an approximate byte budget.
	QueueCapacityBytes int
	// AllowedDelayMillis is a watermark lateness tolerance setting. The
	// engine does not apply it to windowed pumps: their tolerance comes only
	// from pipeline.WindowSpec.AllowedDelay.
	AllowedDelayMillis int
	// WorkerPollInterval is how long Pipeline.Pop sleeps between checks of
	// an empty sink port. The worker pool does not read it; its idle sleep
	// is the fixed worker.defaultPollInterval.
	WorkerPollInterval time.Duration
	// UpdateLockTimeout is stored but not read by the reconfig coordinator:
	// Coordinator.Apply waits for in-flight task leases without a bound.
	UpdateLockTimeout time.Duration
	// QueuePushTimeout bounds a blocking push onto a RowQueue or WindowQueue
	// before the worker yields and retries, per spec.md §5. It covers the
	// host-facing Pipeline.Push and every task-to-task edge push alike
	// (task.Runtime.EdgePushTimeout).
	QueuePushTimeout time.Duration
}

// Default returns the configuration spec.md §6 lists as defaults.
func Default() Config {
	return Config{
		NWorkerThreads:     2,
		QueueCapacityRows:  1000,
		QueueCapacityBytes: 1 << 20,
		AllowedDelayMillis: 0,
		WorkerPollInterval: 10 * time.Millisecond,
		UpdateLockTimeout:  5 * time.Second,
		QueuePushTimeout:   100 * time.Millisecond,
	}
}

// AllowedDelay is AllowedDelayMillis as a time.Duration.
func (c Config) AllowedDelay() time.Duration {
	return time.Duration(c.AllowedDelayMillis) * time.Millisecond
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithNWorkers overrides the worker pool size.
func WithNWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.NWorkerThreads = n
		}
	}
}

// WithQueueCapacity overrides both queue capacity knobs.
func WithQueueCapacity(rows, bytes int) Option {
	return func(c *Config) {
		if rows > 0 {
			c.QueueCapacityRows = rows
		}
		if bytes > 0 {
			c.QueueCapacityBytes = bytes
		}
	}
}

// WithAllowedDelay overrides AllowedDelayMillis.
func WithAllowedDelay(d time.Duration) Option {
	return func(c *Config) { c.AllowedDelayMillis = int(d.Milliseconds()) }
}

// WithWorkerPollInterval overrides WorkerPollInterval.
func WithWorkerPollInterval(d time.Duration) Option {
	return func(c *Config) { c.WorkerPollInterval = d }
}

// WithUpdateLockTimeout overrides UpdateLockTimeout.
func WithUpdateLockTimeout(d time.Duration) Option {
	return func(c *Config) { c.UpdateLockTimeout = d }
}

// New builds a Config from Default() plus the given options.
func New(opts ...Option) Config {
	c := Default()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
