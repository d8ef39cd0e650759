package nfc

import (
	"errors"
	"fmt"
)

var (
	ErrECCUncorrectable = errors.New("uncorrectable ECC error")
	ErrRetryExhausted   = errors.New("read retry exhausted")
	ErrRetrySetup       = errors.New("read retry setup failed")
	ErrInvalidStep      = errors.New("invalid read retry step")
	ErrInvalidChipTable = errors.New("invalid chip table")
	ErrOTPCorrupt       = errors.New("no valid read retry table in OTP")
	ErrDMARequest       = errors.New("DMA request failed")
	ErrUnknownChip      = errors.New("unknown chip")
	ErrProgramFailed    = errors.New("page program failed")
	ErrTimeout          = errors.New("hardware timeout")
	ErrShortBuffer      = errors.New("buffer shorter than a page")
	ErrUnaligned        = errors.New("offset not page aligned")
	ErrOutOfRange       = errors.New("offset beyond last block")
	ErrNotInitialized   = errors.New("controller not initialized")
)

// TimeoutError reports a busy-wait that ran out of iterations or time.
// Most timeouts are soft: the driver logs them and carries on.
type TimeoutError struct {
	Op      string
	Timeout Timeout
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: hardware timeout (%d iterations, %v)", e.Op, e.Timeout.Iterations, e.Timeout.Duration)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// UnknownChipError is returned by Init when the ID read from the chip has no
// entry in the chip table.
type UnknownChipError struct {
	ID [8]byte
}

func (e *UnknownChipError) Error() string {
	return fmt.Sprintf("unknown chip (ID %X)", e.ID)
}

func (e *UnknownChipError) Is(target error) bool { return target == ErrUnknownChip }

// PageError is a failed read or program of one page. Step is the read-retry
// step that was active when the operation gave up.
type PageError struct {
	Page uint32
	Step int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %#x (retry step %d): %v", e.Page, e.Step, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
