package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelInfo(t *testing.T) {
	cases := []struct {
		score       int
		level       int
		nextLevelAt int
		percent     int
	}{
		{0, 1, 20, 0},
		{19, 1, 20, 95},
		{20, 2, 40, 0},
		{39, 2, 40, 95},
		{40, 3, 60, 0},
		{100, 6, 120, 0},
		{-5, 1, 20, 0}, // negative input reads as zero
	}

	for _, tc := range cases {
		info := LevelInfo(tc.score)
		assert.Equal(t, tc.level, info.Level, "score %d", tc.score)
		assert.Equal(t, tc.nextLevelAt, info.NextLevelAt, "score %d", tc.score)
		assert.Equal(t, tc.percent, info.ProgressPercent, "score %d", tc.score)
	}
}

func TestLevelInfoIsUnbounded(t *testing.T) {
	info := LevelInfo(1000)
	assert.Equal(t, 51, info.Level)
	assert.Equal(t, 1020, info.NextLevelAt)
}
