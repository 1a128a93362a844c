package workflow

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Start while a run is active.
var ErrAlreadyRunning = errors.New("import already running")

// RecordError is a failure confined to one record. The run continues.
type RecordError struct {
	Phase Phase
	Name  string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// FatalRunError aborts a run.
type FatalRunError struct {
	Phase Phase
	Err   error
}

func (e *FatalRunError) Error() string {
	return fmt.Sprintf("%s run aborted: %v", e.Phase, e.Err)
}

func (e *FatalRunError) Unwrap() error { return e.Err }
