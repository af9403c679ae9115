package wait

import (
	"context"
	"time"
)

const defaultPollInterval = time.Second

// Option adjusts wait behavior.
type Option func(*settings)

type settings struct {
	interval   time.Duration
	retries    int
	retryHook  func(ctx context.Context) error
	transition func(Member, State)
}

func newSettings(opts []Option) settings {
	s := settings{interval: defaultPollInterval}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithPollInterval sets the minimum spacing between polling rounds. The
// default is one second.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) { s.interval = d }
}

// WithRetries grants n additional deadline windows. Each time the deadline
// expires with retries remaining, the retry hook runs and a fresh deadline
// is computed.
func WithRetries(n int) Option {
	return func(s *settings) { s.retries = n }
}

// WithRetryHook sets the recovery action run before each retry window
// opens. Hook errors are logged and the retry proceeds regardless.
func WithRetryHook(hook func(ctx context.Context) error) Option {
	return func(s *settings) { s.retryHook = hook }
}

// WithTransitionFunc registers an observer invoked whenever a member of a
// group wait changes state. The observer runs on the wait loop and must
// return promptly.
func WithTransitionFunc(fn func(Member, State)) Option {
	return func(s *settings) { s.transition = fn }
}

// schedule is the deadline policy for one wait: when polling stops and
// whether an expired deadline buys a retry window.
type schedule struct {
	timeout  time.Duration
	interval time.Duration
	retries  int
	deadline time.Time
}

func newSchedule(timeout time.Duration, s settings) *schedule {
	return &schedule{timeout: timeout, interval: s.interval, retries: s.retries}
}

// start computes a fresh deadline from now.
func (s *schedule) start() {
	s.deadline = time.Now().Add(s.timeout)
}

// expired reports whether the current deadline has passed.
func (s *schedule) expired() bool {
	return !time.Now().Before(s.deadline)
}

// consumeRetry takes one retry from the budget. It returns false when the
// budget is exhausted.
func (s *schedule) consumeRetry() bool {
	if s.retries <= 0 {
		return false
	}
	s.retries--
	return true
}

// rest sleeps for one poll interval, returning false if ctx is done first.
func (s *schedule) rest(ctx context.Context) bool {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
