package eventbus

import (
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventTaskCreated   EventType = "task.created"
	EventTaskCompleted EventType = "task.completed"
	EventTasksCleared  EventType = "tasks.cleared"
)

// Event describes a change to one owner's task set.
type Event struct {
	ID        string
	Type      EventType
	OwnerID   string
	TaskID    int
	Metadata  map[string]string
	CreatedAt time.Time
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish never blocks. A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Bus) PublishNew(eventType EventType, ownerID string, taskID int, metadata map[string]string) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	if taskID > 0 {
		metadata["task_id"] = strconv.Itoa(taskID)
	}
	b.Publish(&Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		OwnerID:   ownerID,
		TaskID:    taskID,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
}
