package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const schedulerQueueCapacity = 16

// schedulerCommand is one unit of work for the scheduler loop. Every mutation
// of conversation state flows through here; the loop goroutine is the single
// owner.
type schedulerCommand interface{ isSchedulerCommand() }

type startCommand struct{ reply chan error }

type stopCommand struct{ reply chan error }

type rosterCommand struct {
	ids   []string
	reply chan error
}

type audienceCommand struct {
	text     string
	score    float64
	queuedAt time.Time
}

// turnGeneratedCommand carries the produced text ahead of playback so a
// truncated turn still records what was said up to that point.
type turnGeneratedCommand struct {
	token     uint64
	text      string
	estimated time.Duration
}

type turnFinishedCommand struct {
	token     uint64
	text      string
	estimated time.Duration
	err       error
}

func (startCommand) isSchedulerCommand()         {}
func (stopCommand) isSchedulerCommand()          {}
func (rosterCommand) isSchedulerCommand()        {}
func (audienceCommand) isSchedulerCommand()      {}
func (turnGeneratedCommand) isSchedulerCommand() {}
func (turnFinishedCommand) isSchedulerCommand()  {}

type schedulerRuntime struct {
	baseContext context.Context

	queue   chan schedulerCommand
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newSchedulerRuntime() *schedulerRuntime {
	return &schedulerRuntime{
		baseContext: context.Background(),
		queue:       make(chan schedulerCommand, schedulerQueueCapacity),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (runtime *schedulerRuntime) configure(ctx context.Context) {
	if runtime == nil {
		return
	}

	runtime.baseContext = ctx
}

func (runtime *schedulerRuntime) start(o *Orchestrator) (started bool) {
	if runtime == nil || runtime.isClosed() {
		return false
	}

	runtime.startOnce.Do(func() {
		if runtime.isClosed() {
			return
		}

		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)

			scheduler := newScheduler(o)
			for {
				select {
				case <-runtime.closeCh:
					scheduler.shutdown()
					return
				case command := <-runtime.queue:
					scheduler.handle(command)
				case <-scheduler.timerC():
					scheduler.timer = nil
					scheduler.handleTimer()
				}
			}
		}()
	})

	return started
}

func (runtime *schedulerRuntime) end() {
	if runtime == nil {
		return
	}

	runtime.endOnce.Do(func() {
		close(runtime.closeCh)
	})
}

func (runtime *schedulerRuntime) waitUntilEnded() {
	if runtime == nil {
		return
	}

	if runtime.started.Load() {
		<-runtime.done
	}
}

func (runtime *schedulerRuntime) enqueue(command schedulerCommand) bool {
	if runtime == nil || runtime.isClosed() {
		return false
	}

	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- command:
		return true
	}
}

func (runtime *schedulerRuntime) isClosed() bool {
	if runtime == nil {
		return false
	}

	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}
