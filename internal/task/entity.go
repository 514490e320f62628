package task

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Task is one reminder owned by a single user. ID is only unique within the
// owner's set.
type Task struct {
	ID          int       `yaml:"id"`
	OwnerID     string    `yaml:"owner_id"`
	Description string    `yaml:"description"`
	DueAt       time.Time `yaml:"due_at"`
	Status      Status    `yaml:"status"`
	CreatedAt   time.Time `yaml:"created_at"`
	CompletedAt time.Time `yaml:"completed_at,omitempty"`
}

func (t *Task) clone() *Task {
	c := *t
	return &c
}

// Overdue returns how long ago the task fell due, or zero if it has not.
func (t *Task) Overdue(now time.Time) time.Duration {
	if d := now.Sub(t.DueAt); d > 0 {
		return d
	}
	return 0
}

// OwnerSnapshot is the durable form of one owner's task set.
type OwnerSnapshot struct {
	OwnerID string  `yaml:"owner_id"`
	NextID  int     `yaml:"next_id"`
	Tasks   []*Task `yaml:"tasks"`
}
