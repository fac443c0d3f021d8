package gameplay

import (
	"time"

	"prizepool_service/internal/scoring"

	"github.com/shopspring/decimal"
)

type PuzzleAttempt struct {
	AttemptID       string    `gorm:"column:attempt_id;primaryKey;type:varchar(36)" json:"attempt_id"`
	UserID          string    `gorm:"column:user_id;type:varchar(36);not null;index:idx_attempt_user_campaign" json:"user_id"`
	CampaignID      string    `gorm:"column:campaign_id;type:varchar(36);not null;index:idx_attempt_user_campaign" json:"campaign_id"`
	GameType        string    `gorm:"column:game_type;type:varchar(30);not null" json:"game_type"`
	Solved          bool      `gorm:"column:solved;not null" json:"solved"`
	FirstTimeSolved bool      `gorm:"column:first_time_solved;not null;default:false" json:"first_time_solved"`
	// FirstSolveKey is user:campaign on the first fully-correct solve and NULL
	// otherwise; its unique index makes the first-solve award race-free.
	FirstSolveKey   *string   `gorm:"column:first_solve_key;type:varchar(80);uniqueIndex" json:"-"`
	QuizScore       int       `gorm:"column:quiz_score;not null" json:"quiz_score"`
	TotalQuestions  int       `gorm:"column:total_questions;not null" json:"total_questions"`
	PointsEarned    int64     `gorm:"column:points_earned;not null;default:0" json:"points_earned"`
	TimeTaken       int64     `gorm:"column:time_taken;not null" json:"time_taken"` // ms
	MovesTaken      int64     `gorm:"column:moves_taken;not null" json:"moves_taken"`
	Timestamp       time.Time `gorm:"column:submitted_at;not null;index" json:"timestamp"`
}

// UserStats holds a player's lifetime analytics and earnings.
type UserStats struct {
	UserID        string          `gorm:"column:user_id;primaryKey;type:varchar(36)" json:"user_id"`
	Attempts      int64           `gorm:"column:attempts;not null;default:0" json:"attempts"`
	TotalMoves    int64           `gorm:"column:total_moves;not null;default:0" json:"total_moves"`
	TotalTime     int64           `gorm:"column:total_time;not null;default:0" json:"total_time"` // ms
	PuzzlesSolved int64           `gorm:"column:puzzles_solved;not null;default:0" json:"puzzles_solved"`
	TotalPoints   int64           `gorm:"column:total_points;not null;default:0" json:"total_points"`
	TotalEarnings decimal.Decimal `gorm:"column:total_earnings;type:numeric(20,2);not null;default:0" json:"total_earnings"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

type SubmitAttemptRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	CampaignID string `json:"campaign_id" binding:"required"`
	Solved     bool   `json:"solved"`
	QuizScore  int    `json:"quiz_score"`
	TimeTaken  int64  `json:"time_taken"` // ms
	MovesTaken int64  `json:"moves_taken"`
}

type AttemptResult struct {
	Attempt   *PuzzleAttempt     `json:"attempt"`
	Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
}

// RankedPlayer is one row of a ranking over first-time solves.
type RankedPlayer struct {
	UserID        string `gorm:"column:user_id" json:"user_id"`
	PuzzlesSolved int64  `gorm:"column:puzzles_solved" json:"puzzles_solved"`
	Points        int64  `gorm:"column:points" json:"points"`
}
