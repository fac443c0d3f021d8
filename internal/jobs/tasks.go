package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeDailyAggregation   = "prizepool:daily"
	TypeWeeklyDistribution = "payout:weekly"
	TypeExpireCampaigns    = "campaign:expire"
)

const QueueCritical = "critical"

type DailyAggregationPayload struct {
	Date string `json:"date"` // YYYY-MM-DD
}

type WeeklyDistributionPayload struct {
	WeekKey string `json:"week_key"`
}

type ExpireCampaignsPayload struct {
	At time.Time `json:"at"`
}

// NewDailyAggregationTask builds the aggregation task of one date. The task id
// is derived from the date so a date is queued at most once at a time.
func NewDailyAggregationTask(date string) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(DailyAggregationPayload{Date: date})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.TaskID(fmt.Sprintf("%s:%s", TypeDailyAggregation, date)),
		asynq.MaxRetry(5),
	}
	return asynq.NewTask(TypeDailyAggregation, payload), opts, nil
}

func NewWeeklyDistributionTask(weekKey string) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(WeeklyDistributionPayload{WeekKey: weekKey})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.TaskID(fmt.Sprintf("%s:%s", TypeWeeklyDistribution, weekKey)),
		asynq.MaxRetry(5),
	}
	return asynq.NewTask(TypeWeeklyDistribution, payload), opts, nil
}

func NewExpireCampaignsTask(at time.Time) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(ExpireCampaignsPayload{At: at.UTC()})
	if err != nil {
		return nil, nil, err
	}
	return asynq.NewTask(TypeExpireCampaigns, payload), []asynq.Option{asynq.MaxRetry(3)}, nil
}
