package model

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusStage1    Status = "stage1"
	StatusStage2    Status = "stage2"
	StatusStage3    Status = "stage3"
	StatusStage4    Status = "stage4"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var terminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusFailed:    true,
	StatusCancelled: true,
}

// Meeting lifecycle: pending → stage1 → stage2 → stage3 → stage4 → completed.
// failed and cancelled are reachable from every non-terminal state.
var validMeetingTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusStage1: true,
	},
	StatusStage1: {
		StatusStage2: true,
	},
	StatusStage2: {
		StatusStage3: true,
	},
	StatusStage3: {
		StatusStage4: true,
	},
	StatusStage4: {
		StatusCompleted: true,
	},
}

func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

func ValidateTransition(from, to Status) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	if to == StatusFailed || to == StatusCancelled {
		return nil
	}
	allowed, ok := validMeetingTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid meeting transition: %q → %q", from, to)
	}
	return nil
}
