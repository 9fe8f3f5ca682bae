package acquire

import (
	"fmt"

	"github.com/alanbriolat/media-archiver"
)

// Outcome is the result of an acquisition: exactly one of Acquired, NotFound or Failed.
type Outcome interface {
	fmt.Stringer
	outcome()
}

// Acquired means a single file was written.
type Acquired struct {
	File media_archiver.AcquiredFile
}

// NotFound means every strategy ran and nothing usable was found. This is a normal outcome.
type NotFound struct {
	Reason string
	Err    error
}

// Failed means the request couldn't be handled, or a strategy failed with no fallback left.
type Failed struct {
	Reason string
	Err    error
}

func (Acquired) outcome() {}
func (NotFound) outcome() {}
func (Failed) outcome()   {}

func (o Acquired) String() string {
	return fmt.Sprintf("acquired %s", o.File)
}

func (o NotFound) String() string {
	return fmt.Sprintf("no media found: %s", o.Reason)
}

func (o Failed) String() string {
	if o.Err != nil {
		return fmt.Sprintf("failed: %s: %v", o.Reason, o.Err)
	}
	return fmt.Sprintf("failed: %s", o.Reason)
}

// Err returns the error carried by an unsuccessful outcome, or nil for Acquired.
func Err(o Outcome) error {
	switch o := o.(type) {
	case NotFound:
		if o.Err == nil {
			return media_archiver.ErrExhaustedFallback
		}
		return o.Err
	case Failed:
		if o.Err == nil {
			return fmt.Errorf("%s", o.Reason)
		}
		return o.Err
	default:
		return nil
	}
}
