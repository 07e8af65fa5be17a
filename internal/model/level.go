package model

// PointsPerLevel is the number of points between two consecutive levels.
const PointsPerLevel = 100

// LevelFor derives the level from a cumulative point total.
func LevelFor(totalPoints int) int {
	if totalPoints < 0 {
		totalPoints = 0
	}
	return totalPoints/PointsPerLevel + 1
}

// LevelProgress returns how many points were earned inside the current level.
func LevelProgress(totalPoints int) int {
	if totalPoints < 0 {
		return 0
	}
	return totalPoints % PointsPerLevel
}
