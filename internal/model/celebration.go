package model

// ApplyCelebration decides whether a transition from prev to next crossed
// the daily goal for the first time today. It is edge-triggered: once the
// latch is set, dipping below the goal and crossing it again does not fire.
// Only NewDayState clears the latch.
func ApplyCelebration(prev, next IntakeState, g Goal) (IntakeState, bool) {
	next.GoalReached = prev.GoalReached
	crossed := prev.TotalML < g.GoalML && next.TotalML >= g.GoalML && !prev.GoalReached
	if crossed {
		next.GoalReached = true
	}
	return next, crossed
}
