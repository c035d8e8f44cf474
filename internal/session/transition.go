package session

import "github.com/foxseedlab/callscribe/internal/repository"

var statusRank = map[repository.SessionStatus]int{
	repository.SessionStatusJoining: 0,
	repository.SessionStatusActive:  1,
	repository.SessionStatusLeaving: 2,
	repository.SessionStatusEnded:   3,
}

// CanTransition reports whether a stored status may move to next. Progress is monotonic:
// ENDED and FAILED absorb, FAILED is only reachable from JOINING, and ACTIVE may be re-applied.
func CanTransition(from, next repository.SessionStatus) bool {
	if from.Terminal() {
		return false
	}
	if next == repository.SessionStatusFailed {
		return from == repository.SessionStatusJoining
	}
	if from == repository.SessionStatusActive && next == repository.SessionStatusActive {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}
	return nextRank > fromRank
}
