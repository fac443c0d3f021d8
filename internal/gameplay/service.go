package gameplay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"prizepool_service/internal/campaign"
	"prizepool_service/internal/metrics"
	"prizepool_service/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidAttempt      = errors.New("invalid attempt")
	ErrCampaignNotPlayable = errors.New("campaign is not active")
)

type CampaignLookup interface {
	Get(ctx context.Context, campaignID string) (*campaign.Campaign, error)
}

type Service struct {
	repo      Repository
	campaigns CampaignLookup
	now       func() time.Time
}

func NewService(repo Repository, campaigns CampaignLookup) *Service {
	return &Service{repo: repo, campaigns: campaigns, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmitAttempt scores and records one gameplay submission. Points are only
// awarded for the player's first fully-correct solve of the campaign.
func (s *Service) SubmitAttempt(ctx context.Context, req SubmitAttemptRequest) (*AttemptResult, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.CampaignID) == "" {
		return nil, fmt.Errorf("%w: user and campaign are required", ErrInvalidAttempt)
	}
	if req.TimeTaken <= 0 {
		return nil, fmt.Errorf("%w: time taken must be positive", ErrInvalidAttempt)
	}
	if req.MovesTaken < 0 {
		return nil, fmt.Errorf("%w: moves taken cannot be negative", ErrInvalidAttempt)
	}

	c, err := s.campaigns.Get(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusActive {
		return nil, ErrCampaignNotPlayable
	}
	if req.QuizScore < 0 || req.QuizScore > c.TotalQuestions {
		return nil, fmt.Errorf("%w: quiz score %d outside 0..%d", ErrInvalidAttempt, req.QuizScore, c.TotalQuestions)
	}

	attempt := &PuzzleAttempt{
		AttemptID:      uuid.New().String(),
		UserID:         req.UserID,
		CampaignID:     req.CampaignID,
		GameType:       c.GameType,
		Solved:         req.Solved,
		QuizScore:      req.QuizScore,
		TotalQuestions: c.TotalQuestions,
		TimeTaken:      req.TimeTaken,
		MovesTaken:     req.MovesTaken,
		Timestamp:      s.now().UTC(),
	}

	var breakdown *scoring.Breakdown
	if scoring.FullyCorrect(req.Solved, req.QuizScore, c.TotalQuestions) {
		breakdown, err = scoring.Calculate(scoring.Performance{
			GameType:    scoring.GameType(c.GameType),
			TimeTakenMs: req.TimeTaken,
			MovesTaken:  req.MovesTaken,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAttempt, err)
		}
		key := req.UserID + ":" + req.CampaignID
		attempt.FirstTimeSolved = true
		attempt.FirstSolveKey = &key
		attempt.PointsEarned = breakdown.Points
	}

	if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	outcome := "unscored"
	switch {
	case attempt.FirstTimeSolved:
		outcome = "first_solve"
	case breakdown != nil:
		outcome = "repeat_solve"
		breakdown = nil
	}
	metrics.AttemptsSubmitted.WithLabelValues(outcome).Inc()

	zap.L().Info("attempt recorded",
		zap.String("attempt_id", attempt.AttemptID),
		zap.String("user_id", attempt.UserID),
		zap.String("campaign_id", attempt.CampaignID),
		zap.String("outcome", outcome),
		zap.Int64("points", attempt.PointsEarned),
	)

	return &AttemptResult{Attempt: attempt, Breakdown: breakdown}, nil
}

func (s *Service) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	return s.repo.GetStats(ctx, userID)
}

func (s *Service) ListAttempts(ctx context.Context, userID string, campaignID string) ([]PuzzleAttempt, error) {
	return s.repo.ListAttempts(ctx, userID, campaignID)
}
