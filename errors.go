package typedstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorruptedRecord is wrapped by every error caused by stored bytes
	// that cannot be turned back into a value. It is not retryable.
	ErrCorruptedRecord = errors.New("corrupted record")

	// ErrWaitCancelled is returned by NotifyRead when the caller's context
	// ends before a value arrives. The returned error also matches ctx.Err().
	ErrWaitCancelled = errors.New("wait cancelled")

	ErrClosed = errors.New("engine closed")

	// ErrEmptyKey is returned when a key encodes to zero bytes. Bolt cannot
	// store such keys, so no engine is asked to.
	ErrEmptyKey = errors.New("empty key")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorruptedRecord}
	}
	return []error{ErrCorruptedRecord, e.Err}
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// EngineError reports a failure of the underlying storage engine.
type EngineError struct {
	Op  string
	Key []byte
	Err error
}

func engineErrf(op string, key []byte, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{op, key, err}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Error() string {
	var buf strings.Builder
	buf.WriteString("engine ")
	buf.WriteString(e.Op)
	if e.Key != nil {
		buf.WriteByte('/')
		buf.WriteString(hexstr(e.Key))
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

func cancelledErr(ctx context.Context) error {
	err := ctx.Err()
	if cause := context.Cause(ctx); cause != nil && cause != err {
		return fmt.Errorf("%w: %w: %w", ErrWaitCancelled, err, cause)
	}
	return fmt.Errorf("%w: %w", ErrWaitCancelled, err)
}
