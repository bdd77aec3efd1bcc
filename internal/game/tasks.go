package game

import "time"

// taskPhase names a piece of deferred lifecycle work.
type taskPhase int

const (
	phaseRegenerate taskPhase = iota
	phaseRestore
)

// scheduledTask is a due-time plus the phase to execute. Delayed side effects
// are recorded here and consumed by the world's tick instead of ad hoc
// callbacks, so tests can advance virtual time deterministically.
type scheduledTask struct {
	due   time.Time
	phase taskPhase
}

type taskQueue struct {
	tasks []scheduledTask
}

func (q *taskQueue) schedule(due time.Time, phase taskPhase) {
	q.tasks = append(q.tasks, scheduledTask{due: due, phase: phase})
}

// pop removes and returns the earliest task that is due at or before now.
func (q *taskQueue) pop(now time.Time) (taskPhase, bool) {
	best := -1
	for i, t := range q.tasks {
		if t.due.After(now) {
			continue
		}
		if best == -1 || t.due.Before(q.tasks[best].due) {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	phase := q.tasks[best].phase
	q.tasks = append(q.tasks[:best], q.tasks[best+1:]...)
	return phase, true
}

func (q *taskQueue) clear() {
	q.tasks = nil
}

func (q *taskQueue) pending() int {
	return len(q.tasks)
}
