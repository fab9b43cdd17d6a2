package engine

import (
	"mycelium/internal/metrics"
	"mycelium/pkg/domain"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults applied by New.
const (
	DefaultAutoAdvanceInterval = 5 * time.Second
	DefaultDiscoveryAttempts   = 5
)

type settings struct {
	requirements domain.StageRequirements
	interval     time.Duration
	attempts     int
	now          func() time.Time
	newCycleID   func() string
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func defaultSettings() settings {
	return settings{
		requirements: domain.DefaultRequirements(),
		interval:     DefaultAutoAdvanceInterval,
		attempts:     DefaultDiscoveryAttempts,
		now:          func() time.Time { return time.Now().UTC() },
		newCycleID:   uuid.NewString,
		logger:       zap.NewNop(),
	}
}

// Option customises a Controller.
type Option func(*settings)

// WithRequirements replaces the gating table.
func WithRequirements(r domain.StageRequirements) Option {
	return func(s *settings) { s.requirements = r }
}

// WithAutoAdvanceInterval sets the timer period. Zero disables auto-advance.
func WithAutoAdvanceInterval(d time.Duration) Option {
	return func(s *settings) { s.interval = d }
}

// WithDiscoveryAttempts bounds each discovery run.
func WithDiscoveryAttempts(n int) Option {
	return func(s *settings) { s.attempts = n }
}

// WithClock overrides the time source used for history entries.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCycleIDs overrides cycle id generation.
func WithCycleIDs(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newCycleID = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records outcomes and persistence failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}
