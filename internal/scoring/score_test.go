package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	matches := []LevelRef{
		{Issue: 12, Level: "level2", Points: 20},
		{Issue: 9, Level: "level1", Points: 10},
	}

	total, levels := Calculate(matches, 10)
	assert.Equal(t, int64(40), total)
	assert.Equal(t, []string{"level2", "level1"}, levels)
}

func TestCalculateNoMatches(t *testing.T) {
	// The base bonus applies whether or not any issue matched.
	total, levels := Calculate(nil, 10)
	assert.Equal(t, int64(10), total)
	assert.Empty(t, levels)
}

func TestCalculateDeterministic(t *testing.T) {
	matches := []LevelRef{{Issue: 1, Level: "level5", Points: 50}}

	first, _ := Calculate(matches, 10)
	second, _ := Calculate(matches, 10)
	assert.Equal(t, first, second)

	// Inputs are never mutated.
	assert.Equal(t, LevelRef{Issue: 1, Level: "level5", Points: 50}, matches[0])
}
