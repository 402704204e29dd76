package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tendly/tendly/internal/services"
	"github.com/tendly/tendly/pkg/logger"
)

const (
	defaultInvitationSpec = "@hourly"
	defaultLeaseSpec      = "@daily"
)

// Cleaner runs the background expiry sweeps: stale pending invitations move
// to expired, active leases past their end date move to expired. Both sweeps
// are bookkeeping; the request paths check timestamps directly, so a missed
// run never makes a stale invitation redeemable.
type Cleaner struct {
	invitations *services.InvitationService
	leases      *services.LeaseService
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger

	invitationSchedule string
	leaseSchedule      string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for the expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithInvitationSchedule overrides the cron specification for the invitation sweep.
func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

// WithLeaseSchedule overrides the cron specification for the lease sweep.
func WithLeaseSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.leaseSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil service
// results in the corresponding sweep being skipped.
func NewCleaner(invitations *services.InvitationService, leases *services.LeaseService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invitations:        invitations,
		leases:             leases,
		now:                time.Now,
		invitationSchedule: defaultInvitationSpec,
		leaseSchedule:      defaultLeaseSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the sweeps with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.invitations == nil && c.leases == nil {
		return nil
	}

	if c.invitations != nil {
		if _, err := c.cron.AddFunc(c.invitationSchedule, func() {
			ctx := context.Background()
			swept, err := c.invitations.ExpireOverdue(ctx, c.now())
			if err != nil {
				c.log.Warn("invitation sweep failed", zap.Error(err))
				return
			}
			if swept > 0 {
				c.log.Info("expired stale invitations", zap.Int64("count", swept))
			}
		}); err != nil {
			return err
		}
	}

	if c.leases != nil {
		if _, err := c.cron.AddFunc(c.leaseSchedule, func() {
			ctx := context.Background()
			swept, err := c.leases.ExpireEnded(ctx, c.now())
			if err != nil {
				c.log.Warn("lease sweep failed", zap.Error(err))
				return
			}
			if swept > 0 {
				c.log.Info("expired ended leases", zap.Int64("count", swept))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured sweeps sequentially. Primarily used in
// tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.invitations != nil {
		if _, err := c.invitations.ExpireOverdue(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.leases != nil {
		if _, err := c.leases.ExpireEnded(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
