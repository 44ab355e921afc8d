// Package scheduler runs periodic background jobs
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// MonthRecomputer rebuilds one month's KPI snapshot
type MonthRecomputer interface {
	RecomputeMonth(ctx context.Context, monthKey string) (*models.MonthlyKpiSnapshot, error)
}

// Transactor runs fn inside one database transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// KpiScheduler periodically rebuilds the KPI snapshots of the current and previous month.
// Sale writes already refresh their month; the refresher repairs snapshots after manual data fixes
// and makes a new month show up before its first sale.
type KpiScheduler struct {
	kpi        MonthRecomputer
	transactor Transactor
	locker     *redislock.Client
	lockTTL    time.Duration
	interval   time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewKpiScheduler creates a scheduler; a nil locker means every instance refreshes on its own
func NewKpiScheduler(kpi MonthRecomputer, transactor Transactor, locker *redislock.Client, lockTTL, interval time.Duration, logger *logrus.Logger) *KpiScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &KpiScheduler{
		kpi:        kpi,
		transactor: transactor,
		locker:     locker,
		lockTTL:    lockTTL,
		interval:   interval,
		logger:     logger,
		now:        utils.UTCNow,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *KpiScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	s.logger.WithField("interval", s.interval.String()).Info("KPI scheduler started")
	return cancel
}

// monthsToRefresh returns the previous and the current month, oldest first so growth chains forward
func (s *KpiScheduler) monthsToRefresh() ([]string, error) {
	current := finance.MonthKey(s.now())
	previous, err := finance.PreviousMonthKey(current)
	if err != nil {
		return nil, err
	}
	return []string{previous, current}, nil
}

func (s *KpiScheduler) runOnce(ctx context.Context) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, utils.KpiRefreshLockKey, s.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Debug("KPI refresh skipped: another instance holds the lock")
			return
		}
		if err != nil {
			s.logger.WithError(err).Warn("KPI refresh skipped: failed to obtain lock")
			return
		}
		defer func() { _ = lock.Release(context.Background()) }()
	}

	if err := s.refresh(ctx); err != nil {
		s.logger.WithError(err).Error("KPI refresh failed")
	}
}

func (s *KpiScheduler) refresh(ctx context.Context) error {
	months, err := s.monthsToRefresh()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	for _, month := range months {
		err := s.transactor.WithTransaction(runCtx, func(txCtx context.Context) error {
			_, err := s.kpi.RecomputeMonth(txCtx, month)
			return err
		})
		if err != nil {
			return err
		}
	}

	s.logger.WithField("months", months).Debug("KPI snapshots refreshed")
	return nil
}
