package sys

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/resource"
)

const typeParallelFor uint32 = 1

// ErrCallbackTableFull is returned by RegisterParallelFor when no handle is
// left for a new job.
var ErrCallbackTableFull = errors.New("parallel-for callback table is full")

var (
	callbacks = resource.NewTable()
	jobs      = resource.NewTyped[*ParallelJob](callbacks, typeParallelFor)
)

// ParallelJob is a parallel-for body reachable from native code for the
// duration of one KernelContextParallelFor call.
type ParallelJob struct {
	fn       func(int)
	panicVal any
	handle   resource.Handle
	calls    atomic.Int64
	mu       sync.Mutex
	panicked bool
}

// RegisterParallelFor stores fn in the callback table. The returned user-data
// value is what native code hands back to Trampoline. The job stays
// registered until Release.
func RegisterParallelFor(fn func(int)) (*ParallelJob, uintptr, error) {
	job := &ParallelJob{fn: fn}
	job.handle = jobs.Insert(job)
	if job.handle == 0 {
		return nil, 0, ErrCallbackTableFull
	}
	return job, job.handle.Pointer(), nil
}

// Release removes the job from the callback table. Native code must not
// invoke the trampoline with this job's user data afterwards.
func (j *ParallelJob) Release() {
	jobs.Remove(j.handle)
}

// Calls reports how many indices the job has processed.
func (j *ParallelJob) Calls() int64 {
	return j.calls.Load()
}

// Panic returns the first value the body panicked with, if any.
func (j *ParallelJob) Panic() (any, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.panicVal, j.panicked
}

func (j *ParallelJob) run(index int) {
	// A panic must not unwind into native frames.
	defer func() {
		if r := recover(); r != nil {
			j.mu.Lock()
			if !j.panicked {
				j.panicked = true
				j.panicVal = r
			}
			j.mu.Unlock()
		}
	}()
	j.calls.Add(1)
	j.fn(index)
}

// Trampoline is the single fixed-signature entry point native code calls for
// every parallel-for index. userData is the value returned by
// RegisterParallelFor.
func Trampoline(userData uintptr, index uint64) {
	job, ok := jobs.Get(resource.HandleFromPointer(userData))
	if !ok {
		Logger().Error("parallel-for callback with unknown user data",
			zap.Uintptr("user_data", userData),
			zap.Uint64("index", index))
		return
	}
	job.run(int(index))
}

// PendingCallbacks reports how many callbacks are currently reachable from
// native code.
func PendingCallbacks() int {
	return callbacks.Len()
}
