package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IDocStore is the interface for a key–value store that persists its whole
// content as one document. Values are document trees: nil, bool, numbers,
// strings, []any and map[string]any.
// Write operations persist according to the store configuration and return the
// error of that persistence step (nil on success). The in-memory state is
// updated even if persisting fails.
type IDocStore interface {
	// Init inserts the value only if the key does not exist yet.
	// Persistence is triggered whether or not the value was inserted.
	Init(key string, value any) (err error)
	// Set inserts or replaces the value for a key.
	Set(key string, value any) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	// The returned value is a copy, modifying it does not change the store.
	Get(key string) (value any, loaded bool)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool)
	// Delete removes a key. The boolean return value reports whether the key existed.
	// Persistence is triggered whether or not a key was removed.
	Delete(key string) (deleted bool, err error)
	// DeleteAll removes every key, one Delete per key, and returns the store for chaining.
	DeleteAll() (s IDocStore, err error)
	// Sync writes the complete document to the backing file.
	Sync() (err error)
	// Document returns a deep copy of the complete mapping.
	Document() (doc map[string]any, err error)
	// ReplaceDocument replaces the complete mapping if it can be serialized and returns a deep copy of it.
	// It does not persist the new mapping by itself.
	ReplaceDocument(doc map[string]any) (copy map[string]any, err error)
	// Path returns the normalized path of the backing file.
	Path() (path string)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the affected path and the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Path string  // The backing file the error refers to (may be empty).
	Err  error   // The underlying cause (may be nil).
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("JSONDBError (code %s): %s", e.Code, e.Msg)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %q)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This allows errors.Is(err, store.ErrAccess) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new error with the given code, message, path and cause.
func WrapError(code RetCode, msg, path string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Path: path,
		Err:  cause,
	}
}

// Sentinel errors, one per return code. Compare with errors.Is.
var (
	ErrInternal          = NewError(RetCInternalError, "internal error")
	ErrInvalidPath       = NewError(RetCInvalidPath, "invalid file path")
	ErrAccess            = NewError(RetCAccess, "cannot access path")
	ErrStat              = NewError(RetCStat, "error checking path")
	ErrMalformedDocument = NewError(RetCMalformedDocument, "file is not empty and does not contain a valid document")
	ErrWrite             = NewError(RetCWrite, "write error")
	ErrAsyncWrite        = NewError(RetCAsyncWrite, "asynchronous write failed")
	ErrInvalidDocument   = NewError(RetCInvalidDocument, "provided value is not a valid document")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess           RetCode = iota // 0: Command executed successfully.
	RetCInternalError                    // 1: A stored value cannot be copied (it contains itself).
	RetCInvalidPath                      // 2: The path argument is not a usable file path.
	RetCAccess                           // 3: The backing file is not readable/writable.
	RetCStat                             // 4: Probing the backing file failed for another reason.
	RetCMalformedDocument                // 5: The backing file does not contain a valid document.
	RetCWrite                            // 6: A synchronous write failed.
	RetCAsyncWrite                       // 7: An asynchronous write failed (fatal).
	RetCInvalidDocument                  // 8: A replacement document cannot be serialized.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidPath:
		return "InvalidPath"
	case RetCAccess:
		return "Access"
	case RetCStat:
		return "Stat"
	case RetCMalformedDocument:
		return "MalformedDocument"
	case RetCWrite:
		return "Write"
	case RetCAsyncWrite:
		return "AsyncWrite"
	case RetCInvalidDocument:
		return "InvalidDocument"
	default:
		return "Unknown"
	}
}
