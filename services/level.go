package services

import (
	"math"
)

// LevelStep is the fixed score width of one level.
const LevelStep = 20

type Level struct {
	Level           int `json:"level"`
	Score           int `json:"score"`
	NextLevelAt     int `json:"nextLevelAt"`
	ProgressPercent int `json:"progressPercent"`
}

// LevelInfo derives the level purely from the score: score/LevelStep + 1.
// There is no stored level state anywhere, so level can never drift.
func LevelInfo(score int) Level {
	if score < 0 {
		score = 0
	}
	level := score/LevelStep + 1
	floor := (level - 1) * LevelStep
	progress := float64(score-floor) / float64(LevelStep)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return Level{
		Level:           level,
		Score:           score,
		NextLevelAt:     level * LevelStep,
		ProgressPercent: int(math.Round(progress * 100)),
	}
}
