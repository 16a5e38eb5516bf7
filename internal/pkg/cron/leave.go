package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type balanceInitializer interface {
	InitializeYear(ctx context.Context, year int) (int, error)
}

type limiterSweeper interface {
	Sweep() int
}

// LeaveJobs contains the leave maintenance jobs
type LeaveJobs struct {
	balances     balanceInitializer
	limiter      limiterSweeper
	initInterval time.Duration
	now          func() time.Time
}

func NewLeaveJobs(balances balanceInitializer, limiter limiterSweeper, initInterval time.Duration) *LeaveJobs {
	return &LeaveJobs{
		balances:     balances,
		limiter:      limiter,
		initInterval: initInterval,
		now:          time.Now,
	}
}

// RegisterJobs implements Registrar.
func (j *LeaveJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("leave_balance_init", j.initInterval, j.InitializeBalances)

	if j.limiter != nil {
		scheduler.AddJob("rate_limit_sweep", 5*time.Minute, j.SweepRateLimiter)
	}
}

// InitializeBalances creates the current year's balance rows for every
// active user. During December the coming year is prepared as well.
func (j *LeaveJobs) InitializeBalances(ctx context.Context) error {
	now := j.now().UTC()
	years := []int{now.Year()}
	if now.Month() == time.December {
		years = append(years, now.Year()+1)
	}

	for _, year := range years {
		checked, err := j.balances.InitializeYear(ctx, year)
		if err != nil {
			return fmt.Errorf("initialize %d balances: %w", year, err)
		}
		slog.Info("Leave balances initialized", "year", year, "rows_checked", checked)
	}
	return nil
}

func (j *LeaveJobs) SweepRateLimiter(ctx context.Context) error {
	if removed := j.limiter.Sweep(); removed > 0 {
		slog.Debug("Rate limiter buckets swept", "removed", removed)
	}
	return nil
}
