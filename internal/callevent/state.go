package callevent

import "github.com/foxseedlab/callscribe/internal/repository"

var stateTable = map[string]repository.SessionStatus{
	"establishing":     repository.SessionStatusJoining,
	"established":      repository.SessionStatusActive,
	"hold":             repository.SessionStatusActive,
	"transferring":     repository.SessionStatusActive,
	"transferAccepted": repository.SessionStatusActive,
	"redirecting":      repository.SessionStatusActive,
	"terminating":      repository.SessionStatusLeaving,
	"terminated":       repository.SessionStatusEnded,
	"disconnected":     repository.SessionStatusEnded,
}

// MapState translates a provider call state. Unknown states report false and cause no transition.
func MapState(state string) (repository.SessionStatus, bool) {
	s, ok := stateTable[state]
	return s, ok
}

// IsTerminalState reports whether the provider state means the call is gone and its audio should be flushed.
func IsTerminalState(state string) bool {
	return state == "terminated" || state == "disconnected"
}
