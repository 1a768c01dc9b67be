// Package loader implements the input-file manager (component G) and the
// worker-pool scheduler (component H) that drive evaluation of build files
// across many goroutines. It is grounded on the teacher's
// src/plz/plz.go Run/worker-pool pattern, simplified to a single pool
// (no build/test/remote sub-queues, since those stages are out of scope
// for this module) and generalised from "build targets" to "evaluate any
// scheduled item".
package loader

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/hashicorp/go-multierror"
)

var log = logging.MustGetLogger("loader")

// Task is a unit of work submitted to the Scheduler.
type Task func()

// Scheduler is the multi-threaded worker pool plus single run loop
// described in spec.md §4.7: tasks are small closures; a monotonic work
// counter reaching zero (or a latched failure) ends the run.
type Scheduler struct {
	tasks   chan Task
	wg      sync.WaitGroup
	counter int64

	mu       sync.Mutex
	failed   bool
	errs     *multierror.Error
	quit     chan struct{}
	quitOnce sync.Once

	genDeps   map[string]bool
	genDepsMu sync.Mutex

	logCh chan logLine

	// runID tags every log line from this scheduler's pump so concurrent
	// runs in the same process (e.g. one per test) stay distinguishable.
	runID string
}

type logLine struct {
	verb, message string
}

// NewScheduler creates a Scheduler with the given worker pool size.
func NewScheduler(numWorkers int) *Scheduler {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	s := &Scheduler{
		tasks:   make(chan Task, 4096),
		quit:    make(chan struct{}),
		genDeps: map[string]bool{},
		logCh:   make(chan logLine, 256),
		runID:   uuid.New().String(),
	}
	for i := 0; i < numWorkers; i++ {
		go s.worker()
	}
	go s.logPump()
	return s
}

func (s *Scheduler) worker() {
	for task := range s.tasks {
		s.runTask(task)
	}
}

func (s *Scheduler) runTask(task Task) {
	defer s.decrement()
	if s.isFailed() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.FailWith(toError(r))
		}
	}()
	task()
}

func toError(r interface{}) error {
	if e, ok := r.(error); ok {
		return e
	}
	return &panicError{r}
}

type panicError struct{ v interface{} }

func (p *panicError) Error() string {
	if s, ok := p.v.(string); ok {
		return s
	}
	return "panic in scheduled task"
}

// Submit increments the work counter and dispatches task to the pool. Per
// spec.md's error-sink design, no new work is dispatched once a failure has
// latched, though already in-flight tasks still run to completion to
// preserve the counter invariant.
func (s *Scheduler) Submit(task Task) {
	s.increment()
	if s.isFailed() {
		s.decrement()
		return
	}
	s.tasks <- task
}

func (s *Scheduler) increment() {
	atomic.AddInt64(&s.counter, 1)
}

func (s *Scheduler) decrement() {
	if atomic.AddInt64(&s.counter, -1) == 0 {
		s.quitOnce.Do(func() { close(s.quit) })
	}
}

// FailWith latches the first failure; subsequent failures are recorded into
// the aggregate but do not change the "first error" semantics callers see
// via Run.
func (s *Scheduler) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = true
	s.errs = multierror.Append(s.errs, err)
}

func (s *Scheduler) isFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Log funnels a log line through the scheduler's single log pump so
// concurrent workers never interleave output.
func (s *Scheduler) Log(verb, message string) {
	s.logCh <- logLine{verb, message}
}

func (s *Scheduler) logPump() {
	for l := range s.logCh {
		log.Info("[%s] %s: %s", s.runID, l.verb, l.message)
	}
}

// AddGenDependency registers an extra file whose change should invalidate
// generated output, per spec.md §4.7's gen-dependency set.
func (s *Scheduler) AddGenDependency(path string) {
	s.genDepsMu.Lock()
	defer s.genDepsMu.Unlock()
	s.genDeps[path] = true
}

// GenDependencies returns the accumulated gen-dependency set, for emission
// into the top-level manifest.
func (s *Scheduler) GenDependencies() []string {
	s.genDepsMu.Lock()
	defer s.genDepsMu.Unlock()
	out := make([]string, 0, len(s.genDeps))
	for p := range s.genDeps {
		out = append(out, p)
	}
	return out
}

// Run blocks until the work counter reaches zero or a failure is latched,
// then closes the task and log channels and returns the first recorded
// error (if any).
func (s *Scheduler) Run(initial Task) error {
	s.Submit(initial)
	<-s.quit
	close(s.tasks)
	close(s.logCh)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs != nil && len(s.errs.Errors) > 0 {
		return s.errs.Errors[0]
	}
	return nil
}
