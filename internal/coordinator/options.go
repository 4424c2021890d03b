package coordinator

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
)

// ErrorHandler decides whether a failed worker is retried.
type ErrorHandler func(worker int, err error) bool

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	poll       time.Duration
	onError    ErrorHandler
	newBackoff func() backoff.BackOff
	maxRetries int
	rps        float64
	burst      int
	logger     *slog.Logger
}

func defaultOptions() options {
	return options{
		poll:       engine.DefaultPollInterval,
		maxRetries: 3,
		logger:     slog.Default(),
	}
}

// WithPollInterval sets the pause poll interval of every worker engine.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithErrorHandler installs the retry decision for failed workers. Without a
// handler failed workers are never retried.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.onError = h
	}
}

// WithBackoff replaces the delay policy between retries. newBackoff is called
// once per worker and run.
func WithBackoff(newBackoff func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackoff = newBackoff
	}
}

// WithMaxRetries caps the retries of the default backoff per worker and run.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRateLimit caps the candidates handed to the callback, across all
// workers, at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = max(burst, 1)
	}
}

// WithLogger sets the logger for the coordinator and its engines.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o options) retryBackoff() backoff.BackOff {
	if o.newBackoff != nil {
		return o.newBackoff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return backoff.WithMaxRetries(b, uint64(o.maxRetries))
}
