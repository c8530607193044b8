package atvm

import "fmt"

// ErrorCode classifies execution faults raised while a machine is running.
type ErrorCode int

const (
	// InvalidAddress is raised on an out-of-bounds data or code access.
	InvalidAddress ErrorCode = iota + 1
	// IllegalOperation is raised on divide or modulo by zero, and on an
	// unknown opcode byte.
	IllegalOperation
	// StackBounds is raised on a push to a full stack or a pop from an
	// empty one.
	StackBounds
	// IllegalFunctionCode is raised on an unknown function code, or when an
	// opcode's shape does not match the function's declared arity and
	// return signature.
	IllegalFunctionCode
	// CodeUnderflow is raised when decoding runs off the end of the code
	// segment.
	CodeUnderflow
)

func (code ErrorCode) String() string {
	switch code {
	case InvalidAddress:
		return "invalid address"
	case IllegalOperation:
		return "illegal operation"
	case StackBounds:
		return "stack bounds"
	case IllegalFunctionCode:
		return "illegal function code"
	case CodeUnderflow:
		return "code underflow"
	default:
		return fmt.Sprintf("unknown error code %d", int(code))
	}
}

// ExecutionError is the error type raised by machine execution. Errors with
// a redirectable code are diverted to the on-error address when one is set;
// fatal errors always finish the machine.
type ExecutionError struct {
	Code  ErrorCode
	fatal bool
	msg   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%v: %s", e.Code, e.msg)
}

// Redirectable reports whether the fault may be diverted to the machine's
// on-error address. Code underflow and unknown opcodes never are; an
// out-of-bounds data address met while decoding is.
func (e *ExecutionError) Redirectable() bool {
	return !e.fatal
}

func invalidAddressError(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Code: InvalidAddress, msg: fmt.Sprintf(format, args...)}
}

func illegalOperationError(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Code: IllegalOperation, msg: fmt.Sprintf(format, args...)}
}

func stackBoundsError(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Code: StackBounds, msg: fmt.Sprintf(format, args...)}
}

func illegalFunctionCodeError(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Code: IllegalFunctionCode, msg: fmt.Sprintf(format, args...)}
}

func codeUnderflowError(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Code: CodeUnderflow, fatal: true, msg: fmt.Sprintf(format, args...)}
}

func unknownOpCodeError(value byte, pc int) *ExecutionError {
	return &ExecutionError{Code: IllegalOperation, fatal: true, msg: fmt.Sprintf("unknown opcode 0x%02x at %04x", value, pc)}
}

// asExecutionError coerces an arbitrary error into an ExecutionError. Errors
// surfaced by host callbacks carry no machine error code and are treated as
// illegal operations.
func asExecutionError(err error) *ExecutionError {
	if execErr, ok := err.(*ExecutionError); ok {
		return execErr
	}
	return &ExecutionError{Code: IllegalOperation, msg: err.Error()}
}

// NewExecutionError builds an ExecutionError with the given code. Hosts use
// this to classify faults raised from API callbacks.
func NewExecutionError(code ErrorCode, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Code: code, msg: fmt.Sprintf(format, args...)}
}

// CompilationError is returned by the instruction encoder, never by the
// executor.
type CompilationError struct {
	msg string
}

func (e *CompilationError) Error() string {
	return "compilation error: " + e.msg
}

func compilationError(format string, args ...interface{}) *CompilationError {
	return &CompilationError{msg: fmt.Sprintf(format, args...)}
}
