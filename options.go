package smr

import (
	"golang.org/x/time/rate"
)

// DefaultBatchSize is the per-handle pending-retirement count that triggers
// an automatic reclamation attempt.
const DefaultBatchSize = 64

type options struct {
	batchSize       int
	maxParticipants int
	logger          *Logger
	metrics         MetricsObserver
	limiter         *rate.Limiter
}

func defaultOptions() options {
	return options{
		batchSize: DefaultBatchSize,
		logger:    NoopLogger(),
		metrics:   &NoopMetricsObserver{},
	}
}

// Option configures engine construction.
type Option func(*options)

// WithBatchSize sets how many pending retirements a handle accumulates
// before Retire triggers an automatic reclamation attempt.
//
// This is a latency/overhead knob, not a correctness one: a larger batch
// amortizes scan cost over more frees, a smaller one bounds how long
// retired memory lingers. Values below 1 fall back to the default.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithMaxParticipants caps the number of simultaneously registered
// handles. Zero (the default) means no cap; when the cap is hit, Register
// returns a *TooManyParticipantsError.
func WithMaxParticipants(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxParticipants = n
		}
	}
}

// WithLogger sets the engine logger. The default discards all output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsObserver sets the observer notified of engine events.
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithReclaimLimiter rate-limits the automatic scans triggered by Retire's
// batch threshold. Explicit Reclaim calls bypass the limiter. A retire
// whose scan is suppressed simply leaves its entries for a later attempt.
func WithReclaimLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}
