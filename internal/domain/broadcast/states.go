package broadcast

// Status is the lifecycle state of a broadcast message.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingApproval  Status = "pending-approval"
	StatusRejected         Status = "rejected"
	StatusBroadcasting     Status = "broadcasting"
	StatusCancelled        Status = "cancelled"
	StatusCompleted        Status = "completed"
	StatusTechnicalFailure Status = "technical-failure"
)

// allowedTransitions is the single source of truth for the state machine.
// Any (from, to) pair not listed here is rejected. New states must be added
// here and nowhere else.
var allowedTransitions = map[Status][]Status{
	StatusDraft:            {StatusPendingApproval, StatusRejected},
	StatusPendingApproval:  {StatusBroadcasting, StatusRejected, StatusDraft},
	StatusRejected:         {StatusDraft},
	StatusBroadcasting:     {StatusCancelled, StatusCompleted, StatusTechnicalFailure},
	StatusCancelled:        {},
	StatusCompleted:        {},
	StatusTechnicalFailure: {},
}

// preBroadcastStatuses are the statuses in which message content, areas,
// personalisation and schedule may still be edited.
var preBroadcastStatuses = map[Status]bool{
	StatusDraft:           true,
	StatusPendingApproval: true,
	StatusRejected:        true,
}

// AllStatuses lists every status the state machine knows about.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPendingApproval,
		StatusRejected,
		StatusBroadcasting,
		StatusCancelled,
		StatusCompleted,
		StatusTechnicalFailure,
	}
}

// IsValidStatus reports whether s names a known status.
func IsValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsPreBroadcast reports whether a message in this status may still be
// edited.
func IsPreBroadcast(s Status) bool {
	return preBroadcastStatuses[s]
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s Status) bool {
	allowed, ok := allowedTransitions[s]
	return ok && len(allowed) == 0
}
