package scoring

// Calculate computes the total point value for one merged pull request: the
// base merge bonus plus the level value of every matched issue. Pure function
// of its inputs. The returned level names keep match order for the action-log
// message.
func Calculate(matches []LevelRef, mergeBonus int64) (int64, []string) {
	total := mergeBonus
	levels := make([]string, 0, len(matches))
	for _, match := range matches {
		total += match.Points
		levels = append(levels, match.Level)
	}
	return total, levels
}
