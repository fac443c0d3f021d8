// Package scoring computes the points a single puzzle attempt earns.
package scoring

import (
	"errors"
	"math"
)

type GameType string

const (
	GameCardMatching  GameType = "card_matching"
	GameWhackAMole    GameType = "whack_a_mole"
	GameSlidingPuzzle GameType = "sliding_puzzle"
	GameWordHunt      GameType = "word_hunt"
)

const (
	OptimalTimeSeconds = 60.0
	OptimalMoves       = 50.0
	MaxRatio           = 2.0
	BasePoints         = 10.0

	speedWeight      = 0.4
	moveWeight       = 0.4
	completionWeight = 0.2
	completionBonus  = 1.0
)

var ErrInvalidInput = errors.New("time taken and moves taken must be positive")

var difficulty = map[GameType]float64{
	GameCardMatching:  1,
	GameWhackAMole:    1.5,
	GameSlidingPuzzle: 2,
	GameWordHunt:      1,
}

func (g GameType) Valid() bool {
	_, ok := difficulty[g]
	return ok
}

// DifficultyMultiplier defaults to 1 for unknown game types.
func (g GameType) DifficultyMultiplier() float64 {
	if m, ok := difficulty[g]; ok {
		return m
	}
	return 1
}

type Performance struct {
	GameType    GameType
	TimeTakenMs int64
	MovesTaken  int64
}

type Breakdown struct {
	SpeedScore           float64 `json:"speed_score"`
	MoveScore            float64 `json:"move_score"`
	WeightedMultiplier   float64 `json:"weighted_multiplier"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
	Points               int64   `json:"points"`
}

// FullyCorrect is the correctness gate: solved with every quiz question right.
func FullyCorrect(solved bool, quizScore, totalQuestions int) bool {
	return solved && quizScore == totalQuestions
}

// Calculate applies the point formula. Time and moves must be positive.
func Calculate(p Performance) (*Breakdown, error) {
	if p.TimeTakenMs <= 0 || p.MovesTaken <= 0 {
		return nil, ErrInvalidInput
	}

	seconds := float64(p.TimeTakenMs) / 1000
	speed := math.Min(OptimalTimeSeconds/seconds, MaxRatio)
	moves := math.Min(OptimalMoves/float64(p.MovesTaken), MaxRatio)
	weighted := speedWeight*speed + moveWeight*moves + completionWeight*completionBonus
	diff := p.GameType.DifficultyMultiplier()

	return &Breakdown{
		SpeedScore:           speed,
		MoveScore:            moves,
		WeightedMultiplier:   weighted,
		DifficultyMultiplier: diff,
		Points:               int64(math.Round(BasePoints * weighted * diff)),
	}, nil
}
