package model

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// ChatEligible reports whether a conversation over this task is live.
func (s TaskStatus) ChatEligible() bool {
	return s == TaskStatusInProgress || s == TaskStatusCompleted
}

// TaskRef is the read model the chat core consumes from the task
// subsystem: current status plus the two parties.
type TaskRef struct {
	ID         string     `json:"id"`
	Status     TaskStatus `json:"status"`
	UploadedBy string     `json:"uploaded_by"`
	AssignedTo string     `json:"assigned_to,omitempty"`
}
