package agents

import "fmt"

// MalformedResponseError is returned when a structured agent produced
// output that cannot be decoded into its schema. It is fatal for the
// enclosing phase; retries belong to the gateway, not here.
type MalformedResponseError struct {
	Agent string
	Raw   string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("agent %s returned malformed response: %v", e.Agent, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ContractViolationError is returned when a batch agent broke the
// line-count invariant.
type ContractViolationError struct {
	Agent    string
	Expected int
	Actual   int
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("agent %s violated line-count contract: expected %d lines, got %d", e.Agent, e.Expected, e.Actual)
}
