package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout bounds one scene evaluation. A scene whose top-level forms
// never return is abandoned after this long, and the caller keeps the
// scene it already had.
const EvalTimeout = 5 * time.Second

var (
	// ErrEvalTimeout is wrapped by the error Evaluate returns when a scene
	// takes longer than the engine's timeout.
	ErrEvalTimeout = errors.New("engine: scene evaluation timed out")

	// ErrSuperseded is returned for an evaluation that finished after a
	// newer Evaluate call had started. Its description is dropped.
	ErrSuperseded = errors.New("engine: scene evaluation superseded by a newer one")
)

// evalResult is one sandbox run's output, sent from its goroutine.
type evalResult struct {
	desc   *Description
	errors []EvalError
	err    error
}

// isCurrent reports whether gen is still the latest evaluation.
func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

// await collects the result of evaluation gen from ch. A sandbox abandoned
// on timeout keeps running; ch is buffered so its final send never blocks.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*Description, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.isCurrent(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.desc, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrEvalTimeout, e.timeout)
	}
}
