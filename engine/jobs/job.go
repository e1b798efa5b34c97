package jobs

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/core"
)

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")

// Task is one unit of work. Run is required, the callbacks are optional and
// run on the worker that executed the task.
type Task struct {
	Name       string
	Run        func() error
	OnComplete func()
	OnFailure  func(err error)
}

// JobSystem runs tasks on a fixed number of worker goroutines.
type JobSystem struct {
	numWorkers int
	jobQueue   chan Task
	wg         sync.WaitGroup
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Task, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for task := range js.jobQueue {
				js.execute(task)
			}
		}()
	}
}

func (js *JobSystem) execute(task Task) {
	if err := task.Run(); err != nil {
		core.LogError("job %s failed: %s", task.Name, err)
		if task.OnFailure != nil {
			task.OnFailure(err)
		}
		return
	}
	if task.OnComplete != nil {
		task.OnComplete()
	}
}

// Submit queues a task, blocking while the queue is full.
func (js *JobSystem) Submit(task Task) {
	js.jobQueue <- task
}

// Shutdown stops accepting tasks and waits for the queued ones to finish.
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}
