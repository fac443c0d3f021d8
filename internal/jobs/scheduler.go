package jobs

import (
	"context"
	"errors"
	"time"

	"prizepool_service/internal/calendar"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues the daily and weekly tasks. It owns the wall clock: the
// tasks it enqueues name the date or week they apply to.
type Scheduler struct {
	enqueuer Enqueuer
	loc      *time.Location
	now      func() time.Time
}

func NewScheduler(enqueuer Enqueuer, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{enqueuer: enqueuer, loc: loc, now: time.Now}
}

// Run blocks until ctx is done. Daily work is enqueued shortly after
// midnight and the weekly distribution late on Sunday.
func (s *Scheduler) Run(ctx context.Context) {
	zap.L().Info("[Scheduler] started prize pool scheduler", zap.String("timezone", s.loc.String()))

	for {
		now := s.now().In(s.loc)
		daily := nextRunTime(now, 0, 5)
		weekly := nextWeeklyRunTime(now, time.Sunday, 23, 55)

		next := daily
		if weekly.Before(daily) {
			next = weekly
		}
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)

		select {
		case <-time.After(next.Sub(now)):
			if next.Equal(weekly) {
				s.EnqueueWeekly(ctx, next)
			} else {
				s.EnqueueDaily(ctx, next)
			}
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

// EnqueueDaily queues the aggregation of at's date and the campaign expiry
// sweep. Both use the start of the day as their boundary: a campaign ending
// during the day still contributes that day, whichever task runs first.
func (s *Scheduler) EnqueueDaily(ctx context.Context, at time.Time) {
	date := calendar.DateKey(at, s.loc)
	if task, opts, err := NewExpireCampaignsTask(calendar.DayStart(at, s.loc)); err == nil {
		s.enqueue(ctx, task, opts, zap.String("date", date))
	}
	if task, opts, err := NewDailyAggregationTask(date); err == nil {
		s.enqueue(ctx, task, opts, zap.String("date", date))
	}
}

// EnqueueWeekly queues the distribution of the week containing at.
func (s *Scheduler) EnqueueWeekly(ctx context.Context, at time.Time) {
	weekKey := calendar.WeekOf(at, s.loc).Key()
	if task, opts, err := NewWeeklyDistributionTask(weekKey); err == nil {
		s.enqueue(ctx, task, opts, zap.String("week_key", weekKey))
	}
}

func (s *Scheduler) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option, field zap.Field) {
	info, err := s.enqueuer.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			zap.L().Info("[Scheduler] task already queued", zap.String("task_type", task.Type()), field)
			return
		}
		zap.L().Error("[Scheduler] failed to enqueue task", zap.String("task_type", task.Type()), field, zap.Error(err))
		return
	}
	zap.L().Info("[Scheduler] task enqueued",
		zap.String("task_type", task.Type()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		field,
	)
}

// nextRunTime returns the next hour:minute strictly after now.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func nextWeeklyRunTime(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	next := nextRunTime(now, hour, minute)
	for next.Weekday() != weekday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
