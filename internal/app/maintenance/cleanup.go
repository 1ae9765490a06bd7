package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mstepanenko/sprintdesk/internal/services"
	"github.com/mstepanenko/sprintdesk/pkg/logger"
)

const defaultCodeSweepInterval = time.Minute

// Sweeper runs the background maintenance job purging expired invitation
// codes. Credential records are deliberately left alone: a pair stays valid
// for refresh until it is rotated or revoked, regardless of the access
// token's expiry.
type Sweeper struct {
	invitations *services.InvitationService
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger
	enabled     bool

	codeInterval time.Duration
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(sweeper *Sweeper) {
		if c != nil {
			sweeper.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(sweeper *Sweeper) {
		if now != nil {
			sweeper.now = now
		}
	}
}

// WithCodeSweepInterval adjusts how often expired invitation codes are purged.
func WithCodeSweepInterval(interval time.Duration) Option {
	return func(sweeper *Sweeper) {
		if interval > 0 {
			sweeper.codeInterval = interval
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults. A nil invitation
// service results in the job being skipped.
func NewSweeper(invitations *services.InvitationService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		invitations:  invitations,
		now:          time.Now,
		codeInterval: defaultCodeSweepInterval,
		log:          logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	sweeper.enabled = sweeper.invitations != nil

	return sweeper
}

// Start registers the sweep job with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if !s.enabled {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.codeInterval)
	if _, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if _, err := s.invitations.Sweep(ctx, s.now()); err != nil {
			s.log.Warn("invitation code sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Primarily used in tests
// and during graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.invitations != nil {
		if _, err := s.invitations.Sweep(ctx, s.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
