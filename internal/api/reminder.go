// Package api holds the request and response messages of the nudge RPC
// services and their procedure paths.
package api

import "time"

const (
	ReminderServiceName = "nudge.v1.ReminderService"

	ReminderServiceAddTaskProcedure      = "/" + ReminderServiceName + "/AddTask"
	ReminderServiceCompleteTaskProcedure = "/" + ReminderServiceName + "/CompleteTask"
	ReminderServiceListTasksProcedure    = "/" + ReminderServiceName + "/ListTasks"
	ReminderServiceClearTasksProcedure   = "/" + ReminderServiceName + "/ClearTasks"
	ReminderServiceResolveTimeProcedure  = "/" + ReminderServiceName + "/ResolveTime"
)

type Task struct {
	ID          int       `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	// Reminder is the scheduler state, empty when no reminder is armed.
	Reminder string `json:"reminder,omitempty"`
}

type AddTaskRequest struct {
	OwnerID     string `json:"owner_id"`
	Description string `json:"description"`
	Time        string `json:"time"`
}

type AddTaskResponse struct {
	Task *Task `json:"task"`
}

type CompleteTaskRequest struct {
	OwnerID string `json:"owner_id"`
	ID      string `json:"id"`
}

type CompleteTaskResponse struct {
	Task *Task `json:"task"`
}

type ListTasksRequest struct {
	OwnerID string `json:"owner_id"`
}

type ListTasksResponse struct {
	Tasks []*Task `json:"tasks"`
}

type ClearTasksRequest struct {
	OwnerID string `json:"owner_id"`
}

type ClearTasksResponse struct {
	Cleared []*Task `json:"cleared"`
}

type ResolveTimeRequest struct {
	Time string `json:"time"`
}

type ResolveTimeResponse struct {
	At       time.Time `json:"at"`
	Timezone string    `json:"timezone"`
}
