package datalog

import (
	"errors"
	"fmt"

	"liftplan/internal/tuple"
)

// ConfigError reports a program that cannot be compiled: an unsupported
// precondition shape, a dangling variable, or unstratifiable negation. It
// is returned before any search starts.
type ConfigError struct {
	Schema string
	Rule   string
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Schema != "" && e.Rule != "":
		return fmt.Sprintf("datalog: schema %s: rule %s: %s", e.Schema, e.Rule, e.Reason)
	case e.Schema != "":
		return fmt.Sprintf("datalog: schema %s: %s", e.Schema, e.Reason)
	case e.Rule != "":
		return fmt.Sprintf("datalog: rule %s: %s", e.Rule, e.Reason)
	}
	return "datalog: " + e.Reason
}

var errNoAnnotation = errors.New("rule carries no annotation")

// GroundingError is the panic value raised when a derived fact cannot be
// decoded back into an action binding. It always indicates a compilation
// bug.
type GroundingError struct {
	Rule  string
	Tuple tuple.SmallTuple
	Err   error
}

func (e *GroundingError) Error() string {
	return fmt.Sprintf("datalog: cannot decode %v derived by %s: %v", e.Tuple, e.Rule, e.Err)
}

func (e *GroundingError) Unwrap() error { return e.Err }
