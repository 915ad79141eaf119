package fixcol

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Sentinel causes carried by a DataError. Use errors.Is against
// DataError.Cause (or the DataError itself, via Unwrap) to classify a
// failure programmatically.
var (
	// ErrUnknownKey indicates the leading key of a line matched no
	// registered union variant.
	ErrUnknownKey = errors.New("unrecognized variant key")

	// ErrWidthMismatch indicates a value did not fit, or did not exactly
	// fill, its field window under strict mode.
	ErrWidthMismatch = errors.New("data width does not match field width")

	// ErrWhitespace indicates a non-whitespace character appeared in a
	// skipped column under strict mode.
	ErrWhitespace = errors.New("unexpected character in skipped column")

	// ErrInvalidEncoding indicates a line contained invalid UTF-8.
	ErrInvalidEncoding = errors.New("invalid utf-8 data")
)

// DataError indicates that fixcol failed to parse or format a value. It is
// created without a line number; the decoding iterator fills Line in before
// surfacing the error to the caller.
//
// Any error returned by this package that is not a *DataError is an I/O
// class failure and is terminal for the stream it came from.
type DataError struct {
	// Text is the exact substring involved in the failure.
	Text string
	// Line is the 1-based line number the failure occurred on, or 0 when
	// the error is not attributed to a line.
	Line int
	// Cause is one of the Err sentinels, a *strconv.NumError from a failed
	// numeric parse, or a custom message from a user codec.
	Cause error
}

// NewDataError creates a DataError with a custom cause message. It is meant
// for Unmarshaler and Marshaler implementations that need to report their
// own diagnostics.
func NewDataError(text, message string) *DataError {
	return &DataError{Text: text, Cause: errors.New(message)}
}

func newDataError(text string, cause error) *DataError {
	return &DataError{Text: text, Cause: cause}
}

// newEncodingError builds the DataError for a line that is not valid UTF-8.
// Text carries the longest valid prefix.
func newEncodingError(line []byte) *DataError {
	valid := 0
	for valid < len(line) {
		r, size := utf8.DecodeRune(line[valid:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		valid += size
	}
	return &DataError{Text: string(line[:valid]), Cause: ErrInvalidEncoding}
}

func (e *DataError) Error() string {
	s := fmt.Sprintf("Error decoding data from %q: %v", e.Text, e.Cause)
	if e.Line > 0 {
		s += fmt.Sprintf("\nError occurred on line %d", e.Line)
	}
	return s
}

func (e *DataError) Unwrap() error { return e.Cause }

// withLine returns a copy of the error attributed to the given line. The
// original error is left unmodified.
func (e *DataError) withLine(line int) *DataError {
	dup := *e
	dup.Line = line
	return &dup
}

// IsDataError reports whether err is a DataError, i.e. a per-record failure
// rather than an I/O class failure.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
