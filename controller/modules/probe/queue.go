package probe

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// Task is a single queued capture request.
type Task struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Time    int64  `json:"ts"`
}

// storeIface is the minimal subset of the controller store the queue needs.
type storeIface interface {
	List(bucket string, fn func(string, []byte) error) error
	Create(bucket string, fn func(string) interface{}) error
	Delete(bucket, id string) error
}

// Queue is a persistent FIFO of capture tasks. Tasks survive a restart;
// duplicates per channel are rejected while queued or running.
type Queue struct {
	store   storeIface
	mu      sync.Mutex
	cond    *sync.Cond
	current *Task
	stopped bool
}

func NewQueue(store storeIface) (*Queue, error) {
	q := &Queue{store: store}
	q.cond = sync.NewCond(&q.mu)
	return q, nil
}

// AddTask enqueues a capture for a channel unless one is queued or running.
func (q *Queue) AddTask(channel string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil && q.current.Channel == channel {
		return errors.New("capture for " + channel + " already in progress")
	}
	if err := q.store.List(queueBucket, func(_ string, v []byte) error {
		var t Task
		if err := json.Unmarshal(v, &t); err == nil && t.Channel == channel {
			return errors.New("duplicate")
		}
		return nil
	}); err != nil {
		return errors.New("capture for " + channel + " already queued")
	}

	task := Task{Channel: channel, Time: time.Now().Unix()}
	fn := func(id string) interface{} {
		task.ID = id
		return &task
	}
	if err := q.store.Create(queueBucket, fn); err != nil {
		return err
	}
	q.cond.Signal()
	return nil
}

// RemoveTask cancels a queued capture for the given channel.
func (q *Queue) RemoveTask(channel string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil && q.current.Channel == channel {
		return errors.New("cannot cancel, capture for " + channel + " is running")
	}
	var deleteID string
	_ = q.store.List(queueBucket, func(id string, v []byte) error {
		var t Task
		if err := json.Unmarshal(v, &t); err == nil && t.Channel == channel {
			deleteID = id
			return errors.New("found")
		}
		return nil
	})
	if deleteID == "" {
		return errors.New("no queued capture for " + channel)
	}
	return q.store.Delete(queueBucket, deleteID)
}

// ListTasks returns pending captures in FIFO order.
func (q *Queue) ListTasks() ([]Task, error) {
	tasks := []Task{}
	if err := q.store.List(queueBucket, func(_ string, v []byte) error {
		var t Task
		if err := json.Unmarshal(v, &t); err == nil {
			tasks = append(tasks, t)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Time < tasks[j].Time
	})
	return tasks, nil
}

// Stop wakes the worker so it can exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// ProcessTasks runs worker for each task, oldest first, blocking on a
// condition variable while the queue is empty.
func (q *Queue) ProcessTasks(worker func(Task)) {
	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return
		}
		var next *Task
		var nextKey string
		_ = q.store.List(queueBucket, func(id string, v []byte) error {
			var t Task
			if err := json.Unmarshal(v, &t); err == nil {
				if next == nil || t.Time < next.Time {
					next = &t
					nextKey = id
				}
			}
			return nil
		})
		if next == nil {
			q.cond.Wait()
			q.mu.Unlock()
			continue
		}
		_ = q.store.Delete(queueBucket, nextKey)
		q.current = next
		q.mu.Unlock()

		worker(*next)

		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
	}
}
