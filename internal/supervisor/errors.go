package supervisor

import (
	"errors"
	"fmt"
)

// ErrNotStarted is returned when operating on a process that was never started.
var ErrNotStarted = errors.New("process not started")

// NotReadyError reports a readiness probe that did not succeed in time.
type NotReadyError struct {
	Name    string
	URL     string
	Timeout string
	Last    error // last probe failure, if any
}

func (e *NotReadyError) Error() string {
	msg := fmt.Sprintf("%s not ready in %s: %s", e.Name, e.Timeout, e.URL)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *NotReadyError) Unwrap() error { return e.Last }

// IsNotReady reports whether err is a readiness timeout.
func IsNotReady(err error) bool {
	var nr *NotReadyError
	return errors.As(err, &nr)
}

// ExitError reports a child that exited on its own, either before becoming
// ready or with a failing status.
type ExitError struct {
	Name        string
	BeforeReady bool
	Err         error // from exec.Cmd.Wait; nil for a clean exit
	StderrTail  string
}

func (e *ExitError) Error() string {
	var msg string
	switch {
	case e.BeforeReady && e.Err == nil:
		msg = e.Name + " exited before ready"
	case e.BeforeReady:
		msg = fmt.Sprintf("%s exited before ready: %v", e.Name, e.Err)
	default:
		msg = fmt.Sprintf("%s exited: %v", e.Name, e.Err)
	}
	if e.StderrTail != "" {
		msg += "; stderr tail: " + e.StderrTail
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// IsExitedBeforeReady reports whether err is an early exit during readiness.
func IsExitedBeforeReady(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee) && ee.BeforeReady
}
