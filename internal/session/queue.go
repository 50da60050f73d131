package session

import "sync"

// writeQueue runs tasks one at a time in push order on a goroutine that
// lives only while there is work.
type writeQueue struct {
	mu      sync.Mutex
	tasks   []func()
	running bool
	pending sync.WaitGroup
}

func (q *writeQueue) push(task func()) {
	q.pending.Add(1)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	if !q.running {
		q.running = true
		go q.drain()
	}
}

func (q *writeQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
		q.pending.Done()
	}
}

func (q *writeQueue) wait() { q.pending.Wait() }
