package enums

import "fmt"

// AIStatus tracks the enrichment axis of an item. SKIPPED is reachable only
// through quota denial and is never retried automatically.
type AIStatus string

const (
	AIStatusPending   AIStatus = "PENDING"
	AIStatusCompleted AIStatus = "COMPLETED"
	AIStatusFailed    AIStatus = "FAILED"
	AIStatusSkipped   AIStatus = "SKIPPED"
)

var validAIStatuses = []AIStatus{
	AIStatusPending,
	AIStatusCompleted,
	AIStatusFailed,
	AIStatusSkipped,
}

// String returns the literal string for the status.
func (s AIStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s AIStatus) IsValid() bool {
	for _, candidate := range validAIStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s AIStatus) IsTerminal() bool {
	return s != AIStatusPending
}

// ParseAIStatus converts raw input into an AIStatus.
func ParseAIStatus(value string) (AIStatus, error) {
	for _, candidate := range validAIStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ai status %q", value)
}
