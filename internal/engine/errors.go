package engine

import "fmt"

// StackUnderflowError is returned by RET when the call stack is empty.
type StackUnderflowError struct{}

func (e *StackUnderflowError) Error() string {
	return "engine: stack underflow on return"
}

// InvalidKeyError is returned when an Input backend reports a key index
// outside 0..=15 from FX0A's wait. SKP/SKNP don't need this: they mask the
// register value to a nibble themselves before checking it against the
// pressed set.
type InvalidKeyError struct {
	Key byte
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("engine: invalid key %#x", e.Key)
}

// MissingInputError is returned by FX0A when no Input backend is attached.
type MissingInputError struct{}

func (e *MissingInputError) Error() string {
	return "engine: no input backend attached"
}
