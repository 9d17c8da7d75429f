package client

import (
	"github.com/parcelio/parcel/internal/wire"
	"github.com/pkg/errors"
)

// The error taxonomy of spec §7: every failure class a caller can
// discriminate on, either with errors.As or errors.Is against the
// sentinels below.

// ValueError reports a locally-detected argument problem: a relative path
// where an absolute one is required, an out-of-range chunk size, etc.
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string { return e.Message }

// FileNameError reports a name containing a forbidden character.
type FileNameError struct {
	Name string
}

func (e *FileNameError) Error() string { return "invalid file name: " + e.Name }

// SourceNotFound reports a missing local source path (client driver only).
type SourceNotFound struct {
	Path string
}

func (e *SourceNotFound) Error() string { return "source not found: " + e.Path }

// DestinationNotFound reports a missing local destination directory.
type DestinationNotFound struct {
	Path string
}

func (e *DestinationNotFound) Error() string { return "destination not found: " + e.Path }

// FileNotFoundError mirrors REFUSED/FILE_NOT_FOUND from the server.
type FileNotFoundError struct {
	Name string
}

func (e *FileNotFoundError) Error() string { return "file not found: " + e.Name }

// NotADirectoryError mirrors REFUSED/NOT_A_DIRECTORY.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string { return "not a directory: " + e.Path }

// NotAFileError mirrors REFUSED/NOT_A_FILE.
type NotAFileError struct {
	Path string
}

func (e *NotAFileError) Error() string { return "not a file: " + e.Path }

// FileExistsError mirrors REFUSED/FILE_ALREADY_EXISTS.
type FileExistsError struct {
	Name string
}

func (e *FileExistsError) Error() string { return "already exists: " + e.Name }

// TimeoutError reports that no reply arrived within the per-call budget.
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string { return "timeout waiting for reply to " + e.Operation }

// CorruptedResponse reports a response whose shape didn't match the
// protocol (wrong discriminant for the request that was sent, or a
// malformed payload that still decoded).
type CorruptedResponse struct {
	Detail string
}

func (e *CorruptedResponse) Error() string { return "corrupted response: " + e.Detail }

// BadRequestError mirrors ERROR/BAD_REQUEST from the server: the server
// considered our frame malformed or out of sequence.
type BadRequestError struct{}

func (e *BadRequestError) Error() string { return "server rejected request as malformed" }

// UnknownError mirrors ERROR/UNKNOWN_ERROR, carrying the server's
// diagnostic message.
type UnknownError struct {
	Message string
}

func (e *UnknownError) Error() string { return "server error: " + e.Message }

// UnexpectedError signals a bug: a guard that should have made a server
// result unreachable was reached anyway.
type UnexpectedError struct {
	Detail string
}

func (e *UnexpectedError) Error() string { return "unexpected: " + e.Detail }

// classifyRefused maps a REFUSED reason to its typed failure, per spec §7
// "a refused response is translated at the first point that the reason
// uniquely maps to a class".
func classifyRefused(reason wire.Reason, name string) error {
	switch reason {
	case wire.ReasonInvalidFileName:
		return &FileNameError{Name: name}
	case wire.ReasonFileNotFound:
		return &FileNotFoundError{Name: name}
	case wire.ReasonFileAlreadyExists:
		return &FileExistsError{Name: name}
	case wire.ReasonNotAFile:
		return &NotAFileError{Path: name}
	case wire.ReasonNotADirectory:
		return &NotADirectoryError{Path: name}
	case wire.ReasonIncorrectFileSize:
		return &ValueError{Message: "incorrect file size"}
	case wire.ReasonIncorrectChunkSize:
		return &ValueError{Message: "incorrect chunk size"}
	default:
		return &UnexpectedError{Detail: "unrecognized refusal reason: " + string(reason)}
	}
}

// classifyError maps an ERROR response to its typed failure.
func classifyError(reason wire.Reason, message string) error {
	switch reason {
	case wire.ReasonBadRequest:
		return &BadRequestError{}
	default:
		return &UnknownError{Message: message}
	}
}

// IsFileExists reports whether err is (or wraps) a FileExistsError, used
// by the --update flag handling in the CLI layer.
func IsFileExists(err error) bool {
	var target *FileExistsError
	return errors.As(err, &target)
}
