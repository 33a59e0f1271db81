package enums

import "fmt"

// UploadStatus tracks the image-persistence axis of an item.
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "PENDING"
	UploadStatusUploading UploadStatus = "UPLOADING"
	UploadStatusCompleted UploadStatus = "COMPLETED"
	UploadStatusFailed    UploadStatus = "FAILED"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusPending,
	UploadStatusUploading,
	UploadStatusCompleted,
	UploadStatusFailed,
}

// String returns the literal string for the status.
func (s UploadStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// ParseUploadStatus converts raw input into an UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
