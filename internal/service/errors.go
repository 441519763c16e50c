package service

import "fmt"

// InputError marks a request the caller got wrong: malformed subtitle
// text or missing required settings. Surfaced immediately, never
// retried.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a repository failure. The orchestrator
// propagates it without retrying; retry policy, if any, belongs to the
// repository.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
