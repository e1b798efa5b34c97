package jobs

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestNewJobSystemValidation(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("0 workers: error = %v, want ErrNoWorkers", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Errorf("negative queue: error = %v, want ErrNegativeChannelSize", err)
	}
}

func TestJobSystemRunsEveryTask(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	if err != nil {
		t.Fatalf("NewJobSystem() error = %v", err)
	}

	var ran, completed atomic.Int32
	var mu sync.Mutex
	var failed []string
	for i := 0; i < 50; i++ {
		fail := i%10 == 0
		js.Submit(Task{
			Name: "task",
			Run: func() error {
				ran.Add(1)
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete: func() { completed.Add(1) },
			OnFailure: func(err error) {
				mu.Lock()
				failed = append(failed, err.Error())
				mu.Unlock()
			},
		})
	}
	if err := js.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if ran.Load() != 50 {
		t.Errorf("ran %d tasks, want 50", ran.Load())
	}
	if completed.Load() != 45 {
		t.Errorf("completed %d tasks, want 45", completed.Load())
	}
	if len(failed) != 5 {
		t.Errorf("failed %d tasks, want 5", len(failed))
	}
}
