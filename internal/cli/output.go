package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/rivervm/internal/canon"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/rvm"
	"github.com/roach88/rivervm/internal/state"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failure, message that does not verify
	ExitCommandError = 2 // Command error (invalid paths, database not reachable, etc.)
)

// Error codes reported in --format json output.
const (
	ErrCodeBadInput     = "E002" // Unparseable argument, key, body or message
	ErrCodeStore        = "E003" // Database could not be opened or written
	ErrCodeNotFound     = "E005" // Principal or key not registered
	ErrCodeVerification = "E101" // Message rejected; see CLIError.Reject
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // What the command was doing
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode maps a failure onto the json error code: rejections are
// verification failures, unknown registry entries are not-found, decode
// errors are bad input and everything else is a store fault.
func errorCode(err error) string {
	switch {
	case rvm.IsRejection(err):
		return ErrCodeVerification
	case errors.Is(err, state.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, message.ErrMalformed),
		errors.Is(err, canon.ErrFloat),
		errors.Is(err, canon.ErrNull),
		errors.Is(err, canon.ErrNotNFC):
		return ErrCodeBadInput
	default:
		return ErrCodeStore
	}
}

// OutputFormatter writes command results as text or as a CLIResponse.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the json envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command. Reject is set when a message was
// rejected and names the rejection, e.g. HASH_MISMATCH.
type CLIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Reject  rvm.RejectCode `json:"reject,omitempty"`
	Details any            `json:"details,omitempty"`
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data: json mode wraps it in a CLIResponse, text mode
// prints it with its String method.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes an error response. Text mode prints details only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// In json mode the classified error is written to Writer, with the rejection
// code when err is a rejection and details defaulting to err's text. Text
// mode writes nothing: main prints the returned error to stderr.
func (f *OutputFormatter) Fail(exit int, message string, err error, details any) error {
	if f.Format == "json" {
		if details == nil {
			details = err.Error()
		}
		_ = f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    errorCode(err),
				Message: message,
				Reject:  rvm.CodeOf(err),
				Details: details,
			},
		})
	}
	return WrapExitError(exit, message, err)
}

// VerboseLog writes a diagnostic line when verbose. It goes to ErrWriter so
// json on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
