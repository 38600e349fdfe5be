package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
)

// Job is work that runs on a worker goroutine. Run must not touch GPU state.
type Job struct {
	Name string
	Run  func() error
	// OnComplete is invoked by Update on the thread driving the job system,
	// with the error returned by Run. Optional.
	OnComplete func(err error)
}

type jobResult struct {
	job Job
	err error
}

// The max number of job results that can wait for Update at once.
const MaxJobResults int = 512

type JobSystem struct {
	numWorkers int
	jobQueue   chan Job
	results    chan jobResult
	wg         sync.WaitGroup

	mutex  sync.Mutex
	closed bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = fmt.Errorf("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, channelSize),
		results:    make(chan jobResult, MaxJobResults),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				err := job.Run()
				if err != nil {
					core.LogError("job '%s' failed: %s", job.Name, err)
				}
				js.results <- jobResult{job: job, err: err}
			}
		}()
	}
}

// Shutdown waits for queued jobs and runs their completion callbacks.
func (js *JobSystem) Shutdown() error {
	js.mutex.Lock()
	if js.closed {
		js.mutex.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mutex.Unlock()

	go func() {
		js.wg.Wait()
		close(js.results)
	}()
	for r := range js.results {
		js.complete(r)
	}
	return nil
}

// Update runs the completion callbacks of finished jobs. Should happen once
// an update cycle.
func (js *JobSystem) Update() {
	for {
		select {
		case r, ok := <-js.results:
			if !ok {
				return
			}
			js.complete(r)
		default:
			return
		}
	}
}

func (js *JobSystem) complete(r jobResult) {
	if r.job.OnComplete != nil {
		r.job.OnComplete(r.err)
	}
}

// Submit queues job for execution. It blocks while the queue is full.
func (js *JobSystem) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("%w: job '%s' has nothing to run", core.ErrPrecondition, job.Name)
	}
	js.mutex.Lock()
	defer js.mutex.Unlock()
	if js.closed {
		return ErrJobSystemClosed
	}
	js.jobQueue <- job
	return nil
}
