package channel

import (
	"errors"
	"fmt"
)

// Code classifies a failure of a storage operation.
type Code string

const (
	// EIO covers disk failures: short reads and writes, fsync errors.
	EIO Code = "EIO"
	// EARG covers malformed caller input, such as an out-of-bounds offset.
	EARG Code = "EARG"
	// EINVAL covers invalid channel identifiers.
	EINVAL Code = "EINVAL"
	// ECORRUPT covers magic mismatches, unreadable framing and
	// non-contiguous segments found during recovery.
	ECORRUPT Code = "ECORRUPT"
)

type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Msg
}

func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or the empty string if err was not
// produced by this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
