package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. ErrorCodeOf maps a sentinel, bare or wrapped, to its
// ErrorCode; the subsystem recorded by NewSubSystemError is not consulted.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicate        = fmt.Errorf("duplicate")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrLimitReached     = fmt.Errorf("limit reached")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrDisabled         = fmt.Errorf("disabled")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrProviderError    = fmt.Errorf("provider error")
)

// Sentinel errors for the core substrate.
var (
	// Security policy.
	ErrCommandNotAllowed = fmt.Errorf("command not in allowlist")
	ErrPolicyDenied      = fmt.Errorf("policy denied")
	ErrPathOutsideSandbox = fmt.Errorf("path is outside sandbox boundary")
	ErrSSRFBlocked       = fmt.Errorf("request to private/reserved IP blocked")
	ErrEncryption        = fmt.Errorf("encryption operation failed")
	ErrDecryption        = fmt.Errorf("decryption failed")

	// Tool reliability.
	ErrCircuitOpen   = fmt.Errorf("circuit breaker open")
	ErrToolFailure   = fmt.Errorf("tool execution failed")
	ErrRetriesExhausted = fmt.Errorf("retries exhausted")

	// Channel dispatch.
	ErrBusClosed        = fmt.Errorf("bus closed")
	ErrChannelNotFound  = fmt.Errorf("channel not found")

	// Orchestration.
	ErrInvalidTransition = fmt.Errorf("invalid state transition")
	ErrVerificationFailed = fmt.Errorf("verification failed")

	// Sync protocol.
	ErrProtocolViolation = fmt.Errorf("protocol violation")
	ErrSchemaMismatch    = fmt.Errorf("schema version mismatch")
	ErrInvalidMessage    = fmt.Errorf("invalid sync message")
	ErrInvalidPeerTransition = fmt.Errorf("invalid peer state transition")
	ErrSnapshotFormat    = fmt.Errorf("unrecognized snapshot format")

	// Resource exhaustion.
	ErrBufferOverflow = fmt.Errorf("buffer overflow")

	// Config / generic.
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with operational context.
type DomainError struct {
	Op        string // operation name (e.g., "Policy.CheckCommandExecution")
	Err       error  // underlying sentinel
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier; descriptive only, not used by ErrorCodeOf
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeDuplicate          ErrorCode = "DUPLICATE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeLimitReached       ErrorCode = "LIMIT_REACHED"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeDisabled           ErrorCode = "DISABLED"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeProviderError      ErrorCode = "PROVIDER_ERROR"
	CodeCommandNotAllowed  ErrorCode = "COMMAND_NOT_ALLOWED"
	CodePolicyDenied       ErrorCode = "POLICY_DENIED"
	CodePathOutsideSandbox ErrorCode = "PATH_OUTSIDE_SANDBOX"
	CodeSSRFBlocked        ErrorCode = "SSRF_BLOCKED"
	CodeEncryption         ErrorCode = "ENCRYPTION"
	CodeDecryption         ErrorCode = "DECRYPTION"
	CodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	CodeToolFailure        ErrorCode = "TOOL_FAILURE"
	CodeRetriesExhausted   ErrorCode = "RETRIES_EXHAUSTED"
	CodeBusClosed          ErrorCode = "BUS_CLOSED"
	CodeChannelNotFound    ErrorCode = "CHANNEL_NOT_FOUND"
	CodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	CodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	CodeProtocolViolation  ErrorCode = "PROTOCOL_VIOLATION"
	CodeSchemaMismatch     ErrorCode = "SCHEMA_MISMATCH"
	CodeInvalidMessage     ErrorCode = "INVALID_MESSAGE"
	CodeInvalidPeerTransition ErrorCode = "INVALID_PEER_TRANSITION"
	CodeSnapshotFormat     ErrorCode = "SNAPSHOT_FORMAT"
	CodeBufferOverflow     ErrorCode = "BUFFER_OVERFLOW"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:           CodeNotFound,
	ErrDuplicate:          CodeDuplicate,
	ErrTimeout:            CodeTimeout,
	ErrLimitReached:       CodeLimitReached,
	ErrPermissionDenied:   CodePermissionDenied,
	ErrDisabled:           CodeDisabled,
	ErrInvalidInput:       CodeInvalidInput,
	ErrProviderError:      CodeProviderError,
	ErrCommandNotAllowed:  CodeCommandNotAllowed,
	ErrPolicyDenied:       CodePolicyDenied,
	ErrPathOutsideSandbox: CodePathOutsideSandbox,
	ErrSSRFBlocked:        CodeSSRFBlocked,
	ErrEncryption:         CodeEncryption,
	ErrDecryption:         CodeDecryption,
	ErrCircuitOpen:        CodeCircuitOpen,
	ErrToolFailure:        CodeToolFailure,
	ErrRetriesExhausted:   CodeRetriesExhausted,
	ErrBusClosed:          CodeBusClosed,
	ErrChannelNotFound:    CodeChannelNotFound,
	ErrInvalidTransition:  CodeInvalidTransition,
	ErrVerificationFailed: CodeVerificationFailed,
	ErrProtocolViolation:  CodeProtocolViolation,
	ErrSchemaMismatch:     CodeSchemaMismatch,
	ErrInvalidMessage:     CodeInvalidMessage,
	ErrInvalidPeerTransition: CodeInvalidPeerTransition,
	ErrSnapshotFormat:     CodeSnapshotFormat,
	ErrBufferOverflow:     CodeBufferOverflow,
	ErrConfigLoad:         CodeConfigLoad,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
